package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunepool/internal/local"
	"github.com/desertthunder/tunepool/internal/models"
	"github.com/desertthunder/tunepool/internal/player"
	"github.com/desertthunder/tunepool/internal/repositories"
	"github.com/desertthunder/tunepool/internal/services"
	"github.com/desertthunder/tunepool/internal/shared"
	"github.com/desertthunder/tunepool/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, providers, engine and session are created on first use and released by [Runner.Close].
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	mu        sync.Mutex
	db        *sql.DB
	repos     *repositories.Repositories
	fetcher   *services.Fetcher
	providers map[models.ProviderTag]services.Provider
	engine    player.Engine
	session   *tasks.Session
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB                                   // already migrated; opened from config when nil
	Providers  map[models.ProviderTag]services.Provider // built from the fetcher when nil
	Engine     player.Engine                             // external player from config when nil
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
		opts.HTTPClient = &http.Client{Timeout: opts.Config.HTTP.Timeout}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
		providers:  opts.Providers,
		engine:     opts.Engine,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, searchCommand, resolveCommand, sourcesCommand, playlistsCommand, favoritesCommand,
		hideCommand, unhideCommand, localCommand, onlineCommand, playCommand, tuiCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by components created afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = l
}

// stores opens the database and the repositories over it.
func (r *Runner) stores() (*repositories.Repositories, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repos != nil {
		return r.repos, nil
	}

	if r.db == nil {
		db, err := shared.OpenStore(r.config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
	}

	repos, err := repositories.Open(r.db, shared.WithLogger(r.logger, "component", "repositories"))
	if err != nil {
		return nil, err
	}
	r.repos = repos
	return repos, nil
}

// catalogs returns the four online providers sharing one HTTP client.
func (r *Runner) catalogs() map[models.ProviderTag]services.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.providers == nil {
		r.fetcher = services.NewFetcher(r.config.HTTP, r.httpClient)
		r.providers = services.New(r.fetcher, r.logger)
	}
	return r.providers
}

func (r *Runner) localCatalog() *local.Catalog {
	return local.NewCatalog(r.config.LibraryRoots(), r.config.Library.Extensions, shared.WithLogger(r.logger, "component", "local"))
}

// sessionOpts overrides the persisted session settings for one command.
type sessionOpts struct {
	forceOnline bool
	pinned      *models.ProviderTag
	start       bool
}

// playerSession builds the session once. With opts.start it also scans the local library and starts polling.
func (r *Runner) playerSession(ctx context.Context, opts sessionOpts) (*tasks.Session, error) {
	repos, err := r.stores()
	if err != nil {
		return nil, err
	}
	providers := r.catalogs()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return r.session, nil
	}

	if r.engine == nil {
		engine, err := player.NewExecEngine(r.config.Player.Command, shared.WithLogger(r.logger, "component", "player"))
		if err != nil {
			return nil, err
		}
		r.engine = engine
	}

	online, err := repos.Settings.GetBool(repositories.KeyOnlineEnabled, r.config.Search.OnlineEnabled)
	if err != nil {
		r.logger.Warn("failed to read online toggle, using config", "error", err)
		online = r.config.Search.OnlineEnabled
	}
	if opts.forceOnline {
		online = true
	}

	pinned := opts.pinned
	if pinned == nil {
		if name, ok, err := repos.Settings.GetString(repositories.KeyPinnedProvider); err == nil && ok {
			if kind, err := models.ParseProviderTag(name); err == nil {
				pinned = &kind
			}
		}
	}

	r.session = tasks.NewSession(tasks.SessionDeps{
		Providers:   providers,
		Endpoints:   repos.Registry,
		Engine:      r.engine,
		Catalog:     r.localCatalog(),
		Library:     repos.Library,
		Preferences: repos.Settings,
		Logger:      r.logger,
	}, tasks.SessionOptions{
		Workers:        r.config.Search.Workers,
		Debounce:       r.config.Search.Debounce,
		SearchTimeout:  r.config.Search.Timeout,
		ResolveTimeout: r.config.HTTP.Timeout,
		PollInterval:   r.config.Player.PollInterval,
		Online:         online,
		Pinned:         pinned,
	})

	if opts.start {
		r.session.Start(ctx)
	}
	return r.session, nil
}

// Close releases the session, engine, HTTP client and database, in that order.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		r.session.Close()
		r.session = nil
	}
	if r.engine != nil {
		r.engine.Release()
		r.engine = nil
	}
	if r.fetcher != nil {
		r.fetcher.Close()
		r.fetcher = nil
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.logger.Warn("failed to close database", "error", err)
		}
		r.db = nil
		r.repos = nil
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

// writeTracks prints tracks as a numbered list.
func (r *Runner) writeTracks(tracks []models.Track) {
	for i, t := range tracks {
		r.writePlain("%3d. %s - %s [%s] (%s)\n", i, t.Artist(), t.Title(), shared.FormatDuration(t.DurationMs()), t.Provider().Label())
	}
}
