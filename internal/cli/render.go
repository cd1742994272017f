package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mrrauch/queue-operator/internal/manifest"
)

func newRenderCommand() *cobra.Command {
	var (
		pf     paramsFlags
		cf     claimFlags
		output string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the Service and Deployment as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			opts, err := cf.options()
			if err != nil {
				return err
			}
			objs := manifest.Objects(pf.params, opts)
			if errs := manifest.Validate(objs, pf.params); len(errs) > 0 {
				return errs.ToAggregate()
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil && err == nil {
						err = fmt.Errorf("close %s: %w", output, cerr)
					}
				}()
				w = f
			}
			return manifest.Render(w, objs...)
		},
	}
	pf.bind(cmd.Flags())
	cf.bind(cmd.Flags())
	cmd.Flags().StringVarP(&pf.params.Namespace, "namespace", "n", "", "Namespace to stamp on the objects (omitted if empty)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write instead of stdout")
	return cmd
}
