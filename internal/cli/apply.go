package cli

import (
	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mrrauch/queue-operator/internal/manifest"
)

func newApplyCommand(newClient clientFactory) *cobra.Command {
	var (
		pf        paramsFlags
		cf        claimFlags
		file      string
		namespace string
	)
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Validate and create or update the declaration in the cluster",
		Long:  "Applies the manifest given with -f, or the one built from flags when -f is omitted. Nothing is sent if validation fails.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var objs []client.Object
			if file != "" {
				parsed, err := readManifest(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				objs = parsed
			} else {
				opts, err := cf.options()
				if err != nil {
					return err
				}
				objs = manifest.Objects(pf.params, opts)
			}

			if errs := manifest.Validate(objs, pf.params); len(errs) > 0 {
				return errs.ToAggregate()
			}

			c, err := newClient()
			if err != nil {
				return err
			}
			ctx := log.IntoContext(cmd.Context(), ctrl.Log.WithName("apply"))
			return manifest.Apply(ctx, c, objs, namespace)
		},
	}
	pf.bind(cmd.Flags())
	cf.bind(cmd.Flags())
	cmd.Flags().StringVarP(&file, "filename", "f", "", "Manifest to apply, - for stdin (built from flags if empty)")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "default", "Namespace for objects that do not set one")
	return cmd
}
