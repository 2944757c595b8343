package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/bowerhall/reconmem/internal/config"
	"github.com/bowerhall/reconmem/internal/logger"
	"github.com/bowerhall/reconmem/internal/storage"
	"github.com/bowerhall/reconmem/pkg/reconmem"
)

func init() {
	godotenv.Load()
}

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cli.Command{
		Name:  "reconmem",
		Usage: "Recon entity store: query, scope, expire and import findings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Usage: "SQLite database path (overrides RECONMEM_DB)"},
		},
		Commands: []*cli.Command{
			selectCommand(),
			scopeCommand("scope", "mark matching rows as in scope", true),
			scopeCommand("noscope", "mark matching rows as out of scope", false),
			deleteCommand(),
			addCommand(),
			autoscopeCommand(),
			reapCommand(),
			daemonCommand(),
			imageCommand(),
			activityCommand(),
		},
	}

	if err := root.Run(ctx, args); err != nil {
		logger.Fatal("command failed", "error", err)
	}
}

// env is what every command works with.
type env struct {
	cfg   *config.Config
	store *reconmem.Store
}

func (e *env) Close() error {
	return e.store.Close()
}

func openEnv(cmd *cli.Command) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if path := cmd.String("db"); path != "" {
		cfg.DBPath = path
	}
	logger.SetDebug(cfg.Debug)

	store, err := reconmem.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	store.SetLogger(logger.With("component", "reconmem"))

	if cfg.RulesFile != "" {
		if err := seedRules(store, cfg.RulesFile); err != nil {
			store.Close()
			return nil, err
		}
	}

	return &env{cfg: cfg, store: store}, nil
}

func seedRules(store *reconmem.Store, path string) error {
	rules, err := config.LoadRules(path)
	if err != nil {
		return err
	}

	for _, r := range rules {
		if err := store.AddRule(r); err != nil {
			return err
		}
	}

	logger.Debug("autoscope rules seeded", "file", path, "count", len(rules))
	return nil
}

func (e *env) images(ctx context.Context) (*storage.Images, error) {
	if !e.cfg.Storage.Enabled {
		return nil, nil
	}

	images, err := storage.NewImages(storage.Config{
		Endpoint:  e.cfg.Storage.Endpoint,
		AccessKey: e.cfg.Storage.AccessKey,
		SecretKey: e.cfg.Storage.SecretKey,
		UseSSL:    e.cfg.Storage.UseSSL,
		Bucket:    e.cfg.Storage.ImageBucket,
	})
	if err != nil {
		return nil, err
	}

	if err := images.Init(ctx); err != nil {
		return nil, err
	}
	return images, nil
}

// dropReapedImages opens the image store, if configured, and removes the
// body of every image the reaper deletes.
func (e *env) dropReapedImages(ctx context.Context) (*storage.Images, error) {
	images, err := e.images(ctx)
	if err != nil || images == nil {
		return nil, err
	}

	e.store.OnReap(dropImageBodies(ctx, images))
	return images, nil
}
