package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plasmalab/shotread/internal/locate"
)

// datasetJSON is one dataset row in the overview response.
type datasetJSON struct {
	Table     string `json:"table"`
	Device    string `json:"device,omitempty"`
	Rows      int64  `json:"rows"`
	Configs   int64  `json:"configs,omitempty"`
	FirstShot int64  `json:"first_shot,omitempty"`
	LastShot  int64  `json:"last_shot,omitempty"`
}

// NewOverviewCommand creates the overview command.
func NewOverviewCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "overview",
		Short:         "Summarize the acquisition database: datasets, rows, shot extents",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOverview(cmd, rootOpts)
		},
	}
	return cmd
}

func runOverview(cmd *cobra.Command, opts *RootOptions) error {
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

	tables, err := env.db.Datasets(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "listing datasets", err)
	}

	// Index devices by their dataset table for annotation.
	byTable := map[string]int{}
	defs := env.reg.Devices()
	for i, def := range defs {
		byTable[def.Table] = i
	}

	var list []datasetJSON
	for _, tbl := range tables {
		ds, err := env.db.Dataset(ctx, tbl)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("dataset %q", tbl), err)
		}
		row := datasetJSON{Table: tbl, Rows: ds.NumRows()}

		if i, ok := byTable[tbl]; ok {
			def := defs[i]
			row.Device = def.Name
			row.Configs = int64(len(def.Configs))
			if ds.NumRows() >= row.Configs && ds.NumRows() > 0 {
				first, last, err := locate.Extent(ctx, locate.Dataset{
					Store:       ds,
					KeyField:    def.KeyField,
					ConfigCount: row.Configs,
				})
				if err != nil {
					return WrapExitError(ExitCommandError,
						fmt.Sprintf("reading shot extent of %q", tbl), err)
				}
				row.FirstShot, row.LastShot = first, last
			}
		}
		list = append(list, row)
	}

	if opts.Format == "json" {
		return out.Success(list)
	}

	w := tabwriter.NewWriter(out.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tDEVICE\tROWS\tCONFIGS\tSHOTS")
	for _, row := range list {
		shots := "-"
		if row.LastShot > 0 {
			shots = fmt.Sprintf("%d..%d", row.FirstShot, row.LastShot)
		}
		device, configs := row.Device, "-"
		if device == "" {
			device = "-"
		} else {
			configs = fmt.Sprintf("%d", row.Configs)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", row.Table, device, row.Rows, configs, shots)
	}
	return w.Flush()
}
