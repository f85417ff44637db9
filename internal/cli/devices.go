package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// deviceJSON is one registered device in the JSON response.
type deviceJSON struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Table    string   `json:"table"`
	KeyField string   `json:"key_field"`
	Configs  []string `json:"configs"`
	Fields   []string `json:"fields"`
}

// NewDevicesCommand creates the devices command.
func NewDevicesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "devices",
		Short:         "List devices defined for this run",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(cmd, rootOpts)
		},
	}
	return cmd
}

func runDevices(cmd *cobra.Command, opts *RootOptions) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.logger()
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := loadEnv(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	var list []deviceJSON
	for _, def := range env.reg.Devices() {
		d := deviceJSON{
			Name:     def.Name,
			Kind:     def.Kind,
			Table:    def.Table,
			KeyField: def.KeyField,
		}
		for _, c := range def.Configs {
			d.Configs = append(d.Configs, c.Name)
		}
		for _, f := range def.Fields {
			d.Fields = append(d.Fields, f.Name)
		}
		list = append(list, d)
	}

	if opts.Format == "json" {
		return out.Success(list)
	}

	w := tabwriter.NewWriter(out.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tKIND\tTABLE\tCONFIGS\tFIELDS")
	for _, d := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			d.Name, d.Kind, d.Table,
			strings.Join(d.Configs, ","), strings.Join(d.Fields, ","))
	}
	return w.Flush()
}
