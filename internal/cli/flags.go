package cli

import (
	"fmt"

	"github.com/spf13/pflag"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/mrrauch/queue-operator/internal/manifest"
)

// paramsFlags holds the flags that describe the declaration.
type paramsFlags struct {
	params manifest.Params
}

func (f *paramsFlags) bind(fs *pflag.FlagSet) {
	d := manifest.DefaultParams()
	fs.StringVar(&f.params.Name, "name", d.Name, "Name of the Service and Deployment, also the app label")
	fs.StringVar(&f.params.Environment, "env", d.Environment, "Value of the env label")
	fs.StringVar(&f.params.Image, "image", d.Image, "Broker container image")
	fs.Int32Var(&f.params.Port, "port", d.Port, "AMQP port of the container and the Service")
	fs.StringVar(&f.params.ClaimName, "claim", d.ClaimName, "PersistentVolumeClaim holding the broker data")
	fs.StringVar(&f.params.MountPath, "mount-path", d.MountPath, "Broker data directory inside the container")
}

// claimFlags holds the flags for an operator-declared claim.
type claimFlags struct {
	create       bool
	size         string
	storageClass string
}

func (f *claimFlags) bind(fs *pflag.FlagSet) {
	fs.BoolVar(&f.create, "create-claim", false, "Also declare the PersistentVolumeClaim instead of expecting it to exist")
	fs.StringVar(&f.size, "storage-size", "10Gi", "Requested size of the declared claim")
	fs.StringVar(&f.storageClass, "storage-class", "", "StorageClass of the declared claim (cluster default if empty)")
}

func (f *claimFlags) options() (manifest.ClaimOptions, error) {
	opts := manifest.ClaimOptions{Create: f.create}
	if !f.create {
		return opts, nil
	}
	size, err := resource.ParseQuantity(f.size)
	if err != nil {
		return opts, fmt.Errorf("invalid --storage-size %q: %w", f.size, err)
	}
	opts.Size = size
	if f.storageClass != "" {
		class := f.storageClass
		opts.StorageClassName = &class
	}
	return opts, nil
}
