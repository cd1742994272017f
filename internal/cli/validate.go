package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/mrrauch/queue-operator/internal/manifest"
)

func newValidateCommand() *cobra.Command {
	var (
		pf   paramsFlags
		file string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a manifest for a consistent single-replica broker declaration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			objs, err := readManifest(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			errs := manifest.Validate(objs, pf.params)
			for _, e := range errs {
				fmt.Fprintln(cmd.ErrOrStderr(), e.Error())
			}
			if len(errs) > 0 {
				return fmt.Errorf("%s: %d problem(s) found", file, len(errs))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d object(s) valid\n", file, len(objs))
			return nil
		},
	}
	pf.bind(cmd.Flags())
	cmd.Flags().StringVarP(&file, "filename", "f", "", "Manifest to check, - for stdin")
	_ = cmd.MarkFlagRequired("filename")
	return cmd
}

// readManifest parses file, or stdin when file is "-".
func readManifest(stdin io.Reader, file string) ([]client.Object, error) {
	r := stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	objs, err := manifest.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	return objs, nil
}
