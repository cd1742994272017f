// Package cli wires the queue-operator commands.
package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/mrrauch/queue-operator/internal/common"
	"github.com/mrrauch/queue-operator/internal/config"
)

// clientFactory builds the cluster client used by apply. Tests replace it.
type clientFactory func() (client.Client, error)

func defaultClientFactory() (client.Client, error) {
	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	return client.New(restConfig, client.Options{Scheme: common.SetupScheme()})
}

// NewRootCommand returns the queue-operator command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultClientFactory)
}

func newRootCommand(newClient clientFactory) *cobra.Command {
	var cfg config.Config
	zapOpts := zap.Options{}

	root := &cobra.Command{
		Use:           "queue-operator",
		Short:         "Declares and reconciles a single-replica RabbitMQ broker",
		Long:          "Renders, validates and applies the queue Service and Deployment, or runs the controller that keeps Queue resources reconciled.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("error initializing env config: %w", err)
			}
			cfg = loaded
			if cfg.Debug {
				zapOpts.Development = true
			}
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&zapOpts)))
			return nil
		},
	}

	goFlags := flag.NewFlagSet("zap", flag.ContinueOnError)
	zapOpts.BindFlags(goFlags)
	root.PersistentFlags().AddGoFlagSet(goFlags)

	root.AddCommand(
		newRenderCommand(),
		newValidateCommand(),
		newApplyCommand(newClient),
		newManagerCommand(&cfg),
	)
	return root
}

// Execute executes the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
