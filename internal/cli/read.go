package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/plasmalab/shotread/internal/read"
	"github.com/plasmalab/shotread/internal/registry"
	"github.com/plasmalab/shotread/internal/shot"
)

// ReadOptions holds flags for the read command.
type ReadOptions struct {
	*RootOptions
	Devices []string
	Union   bool
}

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "read <shots>",
		Short: "Materialize an aligned table for a shot number request",
		Long: `Materialize one row-aligned table across the requested devices.

The shots argument is a single shot number, a comma-separated list, a
start:stop range open at either end, or "all". Each --device flag names a
device, optionally with a configuration as name:config.

Example:
  shotread --store run.db --defs ./devices read 10,20,30 --device Waveform
  shotread --store run.db --defs ./devices read 5:40 --device "6K Compumotor:probe1" --union`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Devices, "device", "d", nil,
		"device to include, as name or name:config (repeatable, required)")
	cmd.Flags().BoolVar(&opts.Union, "union", false,
		"keep every requested shot, fill-padding devices that lack it")
	_ = cmd.MarkFlagRequired("device")

	return cmd
}

func runRead(cmd *cobra.Command, opts *ReadOptions, shotsArg string) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.logger()
	defer func() { _ = logger.Sync() }()

	spec, err := ParseShotSpec(shotsArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid shot number request", err)
	}

	policy := shot.Intersection
	if opts.Union {
		policy = shot.Union
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := loadEnv(ctx, opts.RootOptions, logger)
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	configs, err := resolveDevices(ctx, env.reg, opts.Devices)
	if err != nil {
		return err
	}

	out.VerboseLog("reading %s across %d devices (%s)", spec, len(configs), policy)

	result, err := read.Read(ctx, read.Request{Spec: spec, Policy: policy, Configs: configs})
	if err != nil {
		code := string(read.CodeOf(err))
		if code == "" {
			code = "READ"
		}
		if jsonErr := out.Error(code, err.Error(), nil); jsonErr != nil {
			return jsonErr
		}
		return WrapExitError(ExitFailure, "read failed", err)
	}

	if opts.Format == "json" {
		return out.Success(resultJSON(result))
	}
	return result.Render(out.Writer, result.Meta.KeyField)
}

// resolveDevices turns --device arguments into resolved configurations,
// surfacing ambiguity and misses as command errors.
func resolveDevices(ctx context.Context, reg *registry.Registry, args []string) ([]*registry.DeviceConfiguration, error) {
	seen := map[string]bool{}
	var configs []*registry.DeviceConfiguration

	for _, arg := range args {
		device, config := splitDeviceArg(arg)
		if seen[device] {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("device %q requested twice", device))
		}
		seen[device] = true

		res, err := reg.Resolve(ctx, device, config)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("resolving device %q", device), err)
		}
		switch res.Status {
		case registry.StatusResolved:
			configs = append(configs, res.Config)
		case registry.StatusAmbiguous:
			return nil, NewExitError(ExitCommandError, fmt.Sprintf(
				"device %q has several configurations, pick one of %s with %s:<config>",
				device, strings.Join(res.Choices, ", "), device))
		case registry.StatusNotFound:
			if config != "" && len(res.Choices) > 0 {
				return nil, NewExitError(ExitCommandError, fmt.Sprintf(
					"device %q has no configuration %q (have %s)",
					device, config, strings.Join(res.Choices, ", ")))
			}
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown device %q", device))
		default:
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("device %q: unexpected resolution", device))
		}
	}
	return configs, nil
}

// splitDeviceArg splits "name:config" on the last colon so device names may
// themselves contain colons only when a configuration is not given.
func splitDeviceArg(arg string) (device, config string) {
	if i := strings.LastIndex(arg, ":"); i >= 0 {
		return arg[:i], arg[i+1:]
	}
	return arg, ""
}

// ParseShotSpec parses the CLI shot request syntax: "all", a single number,
// a comma-separated list, or a start:stop range open at either end.
func ParseShotSpec(s string) (shot.Spec, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return shot.Spec{}, fmt.Errorf("empty shot number request")
	case strings.EqualFold(s, "all"):
		return shot.All(), nil
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		var start, stop int64
		var err error
		if parts[0] != "" {
			if start, err = strconv.ParseInt(parts[0], 10, 64); err != nil {
				return shot.Spec{}, fmt.Errorf("range start %q: %w", parts[0], err)
			}
		}
		if parts[1] != "" {
			if stop, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
				return shot.Spec{}, fmt.Errorf("range stop %q: %w", parts[1], err)
			}
		}
		return shot.Range(start, stop), nil
	case strings.Contains(s, ","):
		fields := strings.Split(s, ",")
		ns := make([]int64, 0, len(fields))
		for _, f := range fields {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			n, err := strconv.ParseInt(f, 10, 64)
			if err != nil {
				return shot.Spec{}, fmt.Errorf("shot number %q: %w", f, err)
			}
			ns = append(ns, n)
		}
		if len(ns) == 0 {
			return shot.Spec{}, fmt.Errorf("empty shot number list")
		}
		return shot.List(ns...), nil
	default:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return shot.Spec{}, fmt.Errorf("shot number %q: %w", s, err)
		}
		return shot.Single(n), nil
	}
}
