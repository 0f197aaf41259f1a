package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"resolvd/internal/backoff"
	"resolvd/internal/repositories"
	"resolvd/internal/resolver"
	"resolvd/internal/services"
	"resolvd/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	catalog    services.Catalog
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Catalog    services.Catalog
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		catalog:    opts.Catalog,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner's logger, used when commands redirect logs to a file.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, resolveCommand, cacheCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig replaces the runner's config from the given path when the
// file exists; commands pass their --config flag through here.
func (r *Runner) reloadConfig(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current", "path", path, "error", err)
		return
	}
	r.config = config
}

// openCache opens the configured database and prepares the match cache
// schema. Callers must close the returned database.
func (r *Runner) openCache() (*repositories.MatchCache, *sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	cache := repositories.NewMatchCache(db)
	if err := cache.Init(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to prepare match cache: %w", err)
	}
	return cache, db, nil
}

// buildCatalog returns the injected catalog or constructs one from config,
// authenticating with the token argument (falling back to the configured
// access token).
func (r *Runner) buildCatalog(ctx context.Context, token string) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	if token == "" {
		token = r.config.Catalog.AccessToken
	}
	if token == "" {
		return nil, fmt.Errorf("%w: no access token configured", shared.ErrMissingCredentials)
	}

	catalog := services.NewSpotifyCatalog(r.config.Catalog.BaseURL, r.httpClient)
	catalog.SetSearchLimit(r.config.Catalog.SearchLimit)
	if err := catalog.Authenticate(ctx, map[string]string{"access_token": token}); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return catalog, nil
}

// buildEngine assembles a resolution engine from config: catalog, backoff
// policy, and optional match cache.
func (r *Runner) buildEngine(ctx context.Context, token string, cache resolver.Cache) (*resolver.Engine, error) {
	catalog, err := r.buildCatalog(ctx, token)
	if err != nil {
		return nil, err
	}

	policy := backoff.NewPolicy(r.backoffConfig())
	return resolver.NewEngine(catalog, policy, cache, r.logger), nil
}

func (r *Runner) backoffConfig() backoff.Config {
	cfg := r.config.Resolver
	return backoff.Config{
		MaxRetries:   cfg.MaxRetries,
		BaseDelay:    shared.Millis(cfg.BaseDelayMS),
		MaxDelay:     shared.Millis(cfg.MaxDelayMS),
		JitterFactor: cfg.JitterFactor,
	}
}

func (r *Runner) resolveOpts() resolver.Opts {
	cfg := r.config.Resolver
	return resolver.Opts{
		NumWorkers:     cfg.Concurrency,
		Threshold:      cfg.MatchThreshold,
		RequestsPerSec: cfg.RequestsPerSec,
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
