package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

// CacheStats prints match cache statistics.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	cache, db, err := r.openCache()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := cache.Stats()
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Match Cache")
	r.writePlain("Entries: %d\n", stats.Entries)
	if stats.Entries > 0 {
		r.writePlain("Oldest: %s\n", stats.OldestEntry.Format(time.RFC3339))
		r.writePlain("Newest: %s\n", stats.NewestEntry.Format(time.RFC3339))
	}
	return nil
}

// CacheClear empties the match cache.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	cache, db, err := r.openCache()
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := cache.Clear()
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	r.logger.Info("match cache cleared", "deleted", deleted)
	r.writePlain("✓ Cleared %d cached matches\n", deleted)
	return nil
}

// cacheCommand inspects and maintains the local match cache
func cacheCommand(r *Runner) *cli.Command {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}

	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and maintain the local match cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show cache entry count and age bounds",
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.CacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Delete all cached matches",
				Flags:  []cli.Flag{configFlag},
				Action: r.CacheClear,
			},
		},
	}
}
