package cli

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/plasmalab/shotread/internal/registry"
	"github.com/plasmalab/shotread/internal/store"
)

// runEnv is everything a command needs after loading: the open database and
// the registry of devices bound to their datasets.
type runEnv struct {
	db  *store.SQLiteStore
	reg *registry.Registry
}

func (e *runEnv) Close() error { return e.db.Close() }

// loadEnv opens the acquisition database, loads the CUE device definitions
// and binds each device to its dataset. Definition errors are collected and
// reported together.
func loadEnv(ctx context.Context, opts *RootOptions, logger *zap.Logger) (*runEnv, error) {
	if _, err := os.Stat(opts.Store); err != nil {
		return nil, WrapExitError(ExitCommandError, "acquisition database not found", err)
	}

	db, err := store.Open(opts.Store, logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open acquisition database", err)
	}

	defs, errs := registry.Load(opts.Defs)
	if len(errs) > 0 {
		_ = db.Close()
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("%d invalid device definitions", len(errs)), joinErrors(errs))
	}

	reg := registry.New(logger)
	for _, def := range defs {
		ds, err := db.Dataset(ctx, def.Table)
		if err != nil {
			_ = db.Close()
			return nil, WrapExitError(ExitCommandError,
				fmt.Sprintf("device %s: dataset %q", def.Name, def.Table), err)
		}
		if err := reg.Add(def, ds); err != nil {
			_ = db.Close()
			return nil, WrapExitError(ExitCommandError, "failed to register device", err)
		}
	}
	return &runEnv{db: db, reg: reg}, nil
}

// joinErrors flattens loader errors into one message; each keeps its code.
func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
