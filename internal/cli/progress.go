package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/config"
	"quiz-progress-service/internal/infra/file"
	"quiz-progress-service/internal/infra/sqlite"
)

type progressOptions struct {
	backend string
	dir     string
	dsn     string
	user    string
}

// NewProgressCmd drives the progress store kept on this device.
func NewProgressCmd(configPath *string) *cobra.Command {
	opts := &progressOptions{}
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show, award or reset progress stored on this device",
	}
	cmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "file or sqlite (default: progress.backend when it is one of these, else file)")
	cmd.PersistentFlags().StringVar(&opts.dir, "dir", "", "progress directory (default: progress.dir or the XDG state dir)")
	cmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "sqlite DSN (default: progress.dsn or <dir>/progress.db)")
	cmd.PersistentFlags().StringVar(&opts.user, "user", "", "scope progress to a user id")

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print XP and unlocked badges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLocalStore(cmd, *configPath, opts, func(ctx context.Context, store *app.ProgressStore) error {
				return printJSON(cmd.OutOrStdout(), store.Snapshot(ctx))
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "award <points>",
		Short: "Add experience points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			points, err := strconv.Atoi(args[0])
			if err != nil || points < 0 || points > app.MaxAwardPoints {
				return fmt.Errorf("points must be an integer between 0 and %d, got %q", app.MaxAwardPoints, args[0])
			}
			return withLocalStore(cmd, *configPath, opts, func(ctx context.Context, store *app.ProgressStore) error {
				update, err := store.Award(ctx, points)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), update)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Clear XP and badges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLocalStore(cmd, *configPath, opts, func(ctx context.Context, store *app.ProgressStore) error {
				if err := store.Reset(ctx); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), store.Snapshot(ctx))
			})
		},
	})
	return cmd
}

func withLocalStore(cmd *cobra.Command, configPath string, opts *progressOptions, fn func(context.Context, *app.ProgressStore) error) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	storage, closeStorage, err := openLocalStorage(cfg, opts)
	if err != nil {
		return err
	}
	defer closeStorage()

	store := app.NewProgressStore(storage, app.WithFailureHandler(func(_ context.Context, op string, err error) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %v\n", op, err)
	}))
	defer store.Dispose()

	ctx := cmd.Context()
	store.Initialize(ctx)
	return fn(ctx, store)
}

func openLocalStorage(cfg config.Config, opts *progressOptions) (app.ProgressStorage, func() error, error) {
	if opts.dir != "" {
		cfg.Progress.Dir = opts.dir
	}
	if opts.dsn != "" {
		cfg.Progress.DSN = opts.dsn
	}
	backend := opts.backend
	if backend == "" {
		backend = cfg.Progress.Backend
	}

	scope := opts.user
	switch backend {
	case config.BackendSQLite:
		dsn, err := sqliteDSN(cfg)
		if err != nil {
			return nil, nil, err
		}
		db, err := sqlite.Open(dsn)
		if err != nil {
			return nil, nil, err
		}
		if scope == "" {
			scope = "local"
		}
		return db.Storage(scope), db.Close, nil
	case config.BackendFile, config.BackendMemory, config.BackendRedis, "":
		noClose := func() error { return nil }
		if scope != "" {
			return file.UserStorage(cfg.Progress.Dir, scope), noClose, nil
		}
		return file.NewProgressStorage(cfg.Progress.Dir), noClose, nil
	default:
		return nil, nil, fmt.Errorf("unsupported local backend %q", backend)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
