package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/bowerhall/reconmem/internal/logger"
	"github.com/bowerhall/reconmem/internal/reaper"
	"github.com/bowerhall/reconmem/internal/storage"
	"github.com/bowerhall/reconmem/pkg/reconmem"
)

// familyFilter parses "<family> [WHERE ...]" from the command arguments.
func familyFilter(cmd *cli.Command, required bool) (reconmem.Family, reconmem.Filter, error) {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return "", reconmem.Filter{}, fmt.Errorf("family is required")
	}

	family, err := reconmem.ParseFamily(args[0])
	if err != nil {
		return "", reconmem.Filter{}, err
	}

	parse := reconmem.ParseOptionalFilter
	if required {
		parse = reconmem.ParseFilter
	}
	filter, err := parse(args[1:])
	if err != nil {
		return "", reconmem.Filter{}, err
	}
	return family, filter, nil
}

func selectCommand() *cli.Command {
	return &cli.Command{
		Name:      "select",
		Usage:     "print rows of a family as JSON lines",
		ArgsUsage: "<family> [WHERE ...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "scoped", Usage: "only rows that are in scope"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			family, filter, err := familyFilter(cmd, false)
			if err != nil {
				return err
			}
			if cmd.Bool("scoped") {
				filter = filter.AndScoped()
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			rows, err := e.store.Select(family, filter)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			for _, row := range rows {
				if err := enc.Encode(row); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func scopeCommand(name, usage string, scoped bool) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<family> [WHERE ...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			family, filter, err := familyFilter(cmd, false)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			var n int64
			if scoped {
				n, err = e.store.ScopeFamily(family, filter)
			} else {
				n, err = e.store.NoscopeFamily(family, filter)
			}
			if err != nil {
				return err
			}

			logger.Info("scope updated", "family", family, "scoped", scoped, "count", n)
			fmt.Println(n)
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "delete matching rows",
		ArgsUsage: "<family> WHERE ...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			family, filter, err := familyFilter(cmd, true)
			if err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := e.store.DeleteFamily(family, filter)
			if err != nil {
				return err
			}

			logger.Info("rows deleted", "family", family, "count", n)
			fmt.Println(n)
			return nil
		},
	}
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "insert or update one entity",
		ArgsUsage: "<family> <value>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "ttl", Usage: "expire the entity after this many seconds (defaults to RECONMEM_DEFAULT_TTL)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("usage: add <family> <value>")
			}

			family, err := reconmem.ParseFamily(cmd.Args().Get(0))
			if err != nil {
				return err
			}

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			obj, err := buildInsert(e.store, family, cmd.Args().Get(1))
			if err != nil {
				return err
			}

			ttl := int64(cmd.Int("ttl"))
			if ttl == 0 {
				ttl = e.cfg.DefaultTTL
			}

			var res reconmem.Result
			if ttl > 0 {
				res, err = e.store.InsertTTL(obj, ttl)
			} else {
				res, err = e.store.Insert(obj)
			}
			if err != nil {
				return err
			}

			logger.Debug("entity written", "family", family, "outcome", res.Outcome, "id", res.ID)
			fmt.Println(res)
			return nil
		},
	}
}

func autoscopeCommand() *cli.Command {
	ruleArgs := func(cmd *cli.Command) (reconmem.RuleKind, string, error) {
		if cmd.Args().Len() != 2 {
			return "", "", fmt.Errorf("usage: %s <domain|ip|url> <value>", cmd.Name)
		}
		kind, err := reconmem.ParseRuleKind(cmd.Args().Get(0))
		return kind, cmd.Args().Get(1), err
	}

	return &cli.Command{
		Name:  "autoscope",
		Usage: "manage the rules that decide the scope of new entities",
		Commands: []*cli.Command{
			{
				Name:      "add",
				ArgsUsage: "<domain|ip|url> <value>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "noscope", Usage: "matching entities are stored out of scope"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					kind, value, err := ruleArgs(cmd)
					if err != nil {
						return err
					}

					e, err := openEnv(cmd)
					if err != nil {
						return err
					}
					defer e.Close()

					return e.store.AddRule(reconmem.Rule{Kind: kind, Value: value, Scoped: !cmd.Bool("noscope")})
				},
			},
			{
				Name:      "delete",
				ArgsUsage: "<domain|ip|url> <value>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					kind, value, err := ruleArgs(cmd)
					if err != nil {
						return err
					}

					e, err := openEnv(cmd)
					if err != nil {
						return err
					}
					defer e.Close()

					existed, err := e.store.DeleteRule(kind, value)
					if err != nil {
						return err
					}
					if !existed {
						return fmt.Errorf("no %s rule for %q", kind, value)
					}
					return nil
				},
			},
			{
				Name: "list",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					e, err := openEnv(cmd)
					if err != nil {
						return err
					}
					defer e.Close()

					rules, err := e.store.ListRules()
					if err != nil {
						return err
					}
					for _, r := range rules {
						verdict := "scope"
						if !r.Scoped {
							verdict = "noscope"
						}
						fmt.Printf("%-7s %-8s %s\n", verdict, r.Kind, r.Value)
					}
					return nil
				},
			},
		},
	}
}

func reapCommand() *cli.Command {
	return &cli.Command{
		Name:  "reap",
		Usage: "delete every expired entity once",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			if _, err := e.dropReapedImages(ctx); err != nil {
				return err
			}

			r, err := reaper.New(e.store, e.cfg.ReapSchedule)
			if err != nil {
				return err
			}

			n, err := r.ReapOnce()
			if err != nil {
				return err
			}
			fmt.Println(n)
			return nil
		},
	}
}

func daemonCommand() *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "reap expired entities on RECONMEM_REAP_SCHEDULE until interrupted",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			images, err := e.dropReapedImages(ctx)
			if err != nil {
				return err
			}
			if images != nil {
				logger.Info("image storage", "bucket", images.Bucket(), "healthy", images.Healthy(ctx))
			}

			r, err := reaper.New(e.store, e.cfg.ReapSchedule)
			if err != nil {
				return err
			}

			if err := r.Run(ctx); err != nil {
				return err
			}

			last, total := r.Stats()
			logger.Info("daemon stopped", "last_run", last.Format(time.RFC3339), "reaped", total)
			return nil
		},
	}
}

func imageCommand() *cli.Command {
	return &cli.Command{
		Name:  "image",
		Usage: "import, fetch and delete images",
		Commands: []*cli.Command{
			{
				Name:      "add",
				ArgsUsage: "<path>...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() == 0 {
						return fmt.Errorf("usage: image add <path>...")
					}

					e, err := openEnv(cmd)
					if err != nil {
						return err
					}
					defer e.Close()

					images, err := e.images(ctx)
					if err != nil {
						return err
					}

					for _, path := range cmd.Args().Slice() {
						res, err := importImage(ctx, e.store, images, path)
						if err != nil {
							return fmt.Errorf("%s: %w", path, err)
						}
						fmt.Println(res)
					}
					return nil
				},
			},
			{
				Name:      "get",
				Usage:     "write a stored image body to stdout or --out",
				ArgsUsage: "<sha256>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write to this file instead of stdout"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("usage: image get <sha256>")
					}

					e, err := openEnv(cmd)
					if err != nil {
						return err
					}
					defer e.Close()

					images, err := e.images(ctx)
					if err != nil {
						return err
					}
					if images == nil {
						return errNoObjectStore
					}

					data, err := images.Get(ctx, cmd.Args().First())
					if err != nil {
						return err
					}

					if out := cmd.String("out"); out != "" {
						return os.WriteFile(out, data, 0o644)
					}
					_, err = os.Stdout.Write(data)
					return err
				},
			},
			{
				Name:      "delete",
				Usage:     "delete an image row and its stored body",
				ArgsUsage: "<sha256>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("usage: image delete <sha256>")
					}

					e, err := openEnv(cmd)
					if err != nil {
						return err
					}
					defer e.Close()

					images, err := e.images(ctx)
					if err != nil {
						return err
					}

					var bodies imageRemover
					if images != nil {
						bodies = images
					}
					n, err := deleteImage(ctx, e.store, bodies, cmd.Args().First())
					if err != nil {
						return err
					}
					fmt.Println(n)
					return nil
				},
			},
		},
	}
}

// importImage stores the metadata row and, when an object store is
// configured, the body. Bodies of skipped images are not uploaded.
func importImage(ctx context.Context, store *reconmem.Store, images *storage.Images, path string) (reconmem.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return reconmem.Result{}, err
	}

	img := storage.DescribeImage(path, data)
	res, err := store.Insert(img)
	if err != nil || images == nil || res.Outcome == reconmem.Skipped {
		return res, err
	}

	exists, err := images.Exists(ctx, img.Value)
	if err != nil {
		return res, err
	}
	if !exists {
		if err := images.Put(ctx, img.Value, data, *img.Mime); err != nil {
			return res, err
		}
	}
	return res, nil
}

var errNoObjectStore = errors.New("image storage is not configured, set MINIO_ACCESS_KEY and MINIO_SECRET_KEY")

// imageRemover is the part of the image store that deletes bodies.
type imageRemover interface {
	Delete(ctx context.Context, digest string) error
}

// deleteImage removes the metadata row and, when bodies is set, the
// stored body. A missing row still removes the body.
func deleteImage(ctx context.Context, store *reconmem.Store, bodies imageRemover, digest string) (int64, error) {
	var n int64
	id, err := store.LookupID(reconmem.FamilyImage, digest)
	switch {
	case errors.Is(err, reconmem.ErrNotFound):
	case err != nil:
		return 0, err
	default:
		if n, err = store.DeleteID(reconmem.FamilyImage, id); err != nil {
			return 0, err
		}
	}

	if bodies != nil {
		if err := bodies.Delete(ctx, digest); err != nil {
			return n, err
		}
	}
	return n, nil
}

// dropImageBodies returns a reap hook that deletes the stored body of
// every reaped image. Failures are logged; the row is already gone.
func dropImageBodies(ctx context.Context, bodies imageRemover) func(reconmem.Family, string) {
	return func(f reconmem.Family, key string) {
		if f != reconmem.FamilyImage {
			return
		}
		if err := bodies.Delete(ctx, key); err != nil {
			logger.Warn("image body not removed", "digest", key, "error", err)
			return
		}
		logger.Debug("image body removed", "digest", key)
	}
}

func activityCommand() *cli.Command {
	return &cli.Command{
		Name:  "activity",
		Usage: "print the activity log as JSON lines",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "topic", Usage: "topic, % matches any run of characters"},
			&cli.DurationFlag{Name: "since", Usage: "only entries newer than this, e.g. 24h"},
			&cli.BoolFlag{Name: "location", Usage: "only entries with coordinates"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			q := reconmem.ActivityQuery{Topic: cmd.String("topic"), Location: cmd.Bool("location")}
			if d := cmd.Duration("since"); d > 0 {
				q.Since = time.Now().Add(-d)
			}

			rows, err := e.store.QueryActivity(q)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			for _, a := range rows {
				if err := enc.Encode(activityLine{
					Topic:     a.Topic,
					Time:      a.Time.Time,
					Latitude:  a.Latitude,
					Longitude: a.Longitude,
					Content:   json.RawMessage(a.Content),
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

type activityLine struct {
	Topic     string          `json:"topic"`
	Time      time.Time       `json:"time"`
	Latitude  *float64        `json:"latitude,omitempty"`
	Longitude *float64        `json:"longitude,omitempty"`
	Content   json.RawMessage `json:"content"`
}
