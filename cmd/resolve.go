package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"resolvd/internal/formatter"
	"resolvd/internal/resolver"
	"resolvd/internal/shared"
	"resolvd/internal/ui"
)

// parseQueriesFile reads track queries from a file. JSON files hold an
// array of {"title","artist"} objects; anything else is parsed line by
// line as "Artist - Title", with blank lines and # comments skipped.
func parseQueriesFile(path string) ([]resolver.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries file: %w", err)
	}

	var queries []resolver.Query

	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, &queries); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
		}
	} else {
		for n, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			artist, title, found := strings.Cut(line, " - ")
			if !found {
				return nil, fmt.Errorf("%w: line %d is not in 'Artist - Title' form", shared.ErrInvalidInput, n+1)
			}
			queries = append(queries, resolver.Query{
				Title:  strings.TrimSpace(title),
				Artist: strings.TrimSpace(artist),
			})
		}
	}

	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: no queries in %s", shared.ErrInvalidInput, path)
	}
	for i, q := range queries {
		if q.Title == "" || q.Artist == "" {
			return nil, fmt.Errorf("%w: query %d is missing a title or artist", shared.ErrInvalidInput, i)
		}
	}
	return queries, nil
}

// prepare loads config, queries, cache, and engine for a resolve command.
func (r *Runner) prepare(ctx context.Context, cmd *cli.Command) (*resolver.Engine, []resolver.Query, resolver.Opts, func(), error) {
	r.reloadConfig(cmd.String("config"))

	queries, err := parseQueriesFile(cmd.String("file"))
	if err != nil {
		return nil, nil, resolver.Opts{}, nil, err
	}

	closer := func() {}
	var cache resolver.Cache
	if !cmd.Bool("no-cache") {
		mc, db, err := r.openCache()
		if err != nil {
			r.logger.Warn("match cache unavailable, resolving without it", "error", err)
		} else {
			cache = mc
			closer = func() { db.Close() }
		}
	}

	engine, err := r.buildEngine(ctx, cmd.String("token"), cache)
	if err != nil {
		closer()
		return nil, nil, resolver.Opts{}, nil, err
	}

	opts := r.resolveOpts()
	if workers := int(cmd.Int("workers")); workers > 0 {
		opts.NumWorkers = workers
	}
	if threshold := cmd.Float("threshold"); threshold > 0 {
		opts.Threshold = threshold
	}

	return engine, queries, opts, closer, nil
}

// ResolveRun resolves a batch of queries and prints a report.
func (r *Runner) ResolveRun(ctx context.Context, cmd *cli.Command) error {
	engine, queries, opts, closer, err := r.prepare(ctx, cmd)
	if err != nil {
		return err
	}
	defer closer()

	r.writePlain("Resolving %d queries...\n\n", len(queries))

	results, runErr := engine.Resolve(ctx, queries, opts)
	report := formatter.NewReport("", results)

	r.writePlain("%s", report.ToText())

	if format := cmd.String("format"); format != "" {
		path, err := formatter.WriteReport(report, format, cmd.String("output"))
		if err != nil {
			return err
		}
		r.writePlainln("✓ Report written to %s", path)
	}

	// partial results were already reported; the batch error still decides
	// the exit status
	return runErr
}

// ResolveStream resolves a batch of queries, printing one line per event.
func (r *Runner) ResolveStream(ctx context.Context, cmd *cli.Command) error {
	engine, queries, opts, closer, err := r.prepare(ctx, cmd)
	if err != nil {
		return err
	}
	defer closer()

	for ev := range engine.ResolveStream(ctx, queries, opts) {
		switch ev.Type {
		case resolver.EventResult:
			res := ev.Result
			if res.Track != nil {
				r.writePlain("✓ [%d] %s - %s → %s (%s)\n", ev.Index, res.Query.Artist, res.Query.Title, res.Track.Name, res.Track.ID)
			} else {
				r.writePlain("? [%d] %s - %s: no match\n", ev.Index, res.Query.Artist, res.Query.Title)
			}
		case resolver.EventComplete:
			r.writePlainHeader(fmt.Sprintf("Complete: %.1f%% matched", ev.MatchRate))
		case resolver.EventError:
			r.writePlain("✗ resolution aborted: %v\n", ev.Err)
			return ev.Err
		}
	}

	return nil
}

// ResolveTUI launches the interactive resolution viewer.
func (r *Runner) ResolveTUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/resolvd-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	engine, queries, opts, closer, err := r.prepare(ctx, cmd)
	if err != nil {
		return err
	}
	defer closer()

	return ui.Run(ctx, engine, queries, opts)
}

func resolveFlags(extra ...cli.Flag) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "file",
			Aliases:  []string{"f"},
			Usage:    "Path to queries file (JSON array or 'Artist - Title' lines)",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "Catalog access token (overrides config)",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent resolution workers",
		},
		&cli.FloatFlag{
			Name:  "threshold",
			Usage: "Similarity threshold for fuzzy matching",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Skip the local match cache",
		},
	}
	return append(flags, extra...)
}

func resolveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Resolve track queries against the catalog",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Resolve a batch of queries and print a report",
				Flags: resolveFlags(
					&cli.StringFlag{
						Name:  "format",
						Usage: "Write a report file (json or csv)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Report file path",
					},
				),
				Action: r.ResolveRun,
			},
			{
				Name:   "stream",
				Usage:  "Resolve queries, printing results as they complete",
				Flags:  resolveFlags(),
				Action: r.ResolveStream,
			},
			{
				Name:   "tui",
				Usage:  "Watch a resolution run in an interactive terminal UI",
				Flags:  resolveFlags(),
				Action: r.ResolveTUI,
			},
		},
	}
}
