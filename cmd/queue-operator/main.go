package main

import (
	"github.com/mrrauch/queue-operator/internal/cli"
)

func main() {
	cli.Execute()
}
