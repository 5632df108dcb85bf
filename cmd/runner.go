package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/revu/internal/formatter"
	"github.com/desertthunder/revu/internal/repositories"
	"github.com/desertthunder/revu/internal/services"
	"github.com/desertthunder/revu/internal/session"
	"github.com/desertthunder/revu/internal/shared"
	"github.com/desertthunder/revu/internal/tasks"
	"github.com/urfave/cli/v3"
)

const (
	sessionExpiredMsg = "Your session has expired. Please login again."
	dayCacheRetention = 30 * 24 * time.Hour
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	logger  *log.Logger
	output  io.Writer
	errOut  io.Writer
	input   *bufio.Reader
	painter formatter.Painter
	rt      http.RoundTripper

	db       *sql.DB
	jar      *services.PersistentJar
	api      *services.APIService
	session  *session.Coordinator
	tasks    *services.TasksClient
	calendar *services.CalendarClient
	google   *services.GoogleClient
	board    *tasks.Board
	progress chan tasks.ProgressUpdate

	unsubscribe func()
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
	ErrOut io.Writer
	Input  io.Reader
	// DB replaces the database named in Config.
	DB *sql.DB
	// Transport defaults to [http.DefaultTransport].
	Transport http.RoundTripper
	Painter   formatter.Painter
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
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Painter == nil {
		opts.Painter = formatter.DefaultPalette
	}

	return &Runner{
		config:  opts.Config,
		logger:  opts.Logger,
		output:  opts.Output,
		errOut:  opts.ErrOut,
		input:   bufio.NewReader(opts.Input),
		painter: opts.Painter,
		rt:      opts.Transport,
		db:      opts.DB,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, dayCommand, revisionCommand, taskCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig replaces the runner's config with the file named by --config,
// when it exists.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return err
	}
	r.config = config
	if !cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Log.Level))
	}
	return nil
}

// connect builds the API stack: cookie jar restored from the database, the
// request pipeline, the session coordinator and the day board. It then probes
// for an existing session using the stored refresh cookie.
func (r *Runner) connect(ctx context.Context, cmd *cli.Command) error {
	if r.api != nil {
		return nil
	}
	if err := r.loadConfig(cmd); err != nil {
		return err
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	if r.db == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return err
		}
		r.db = db
	}
	if err := shared.RunMigrations(r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	jar, err := services.NewPersistentJar(repositories.NewCookieRepository(r.db), shared.WithLogger(r.logger, "component", "jar"))
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	r.jar = jar

	base, err := url.Parse(r.config.API.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	if n, err := jar.Restore(ctx, base); err != nil {
		r.logger.Warn("failed to restore cookies", "error", err)
	} else {
		r.logger.Debug("restored cookies", "count", n)
	}

	r.api = services.NewAPIService(r.config.API.BaseURL,
		&http.Client{Jar: jar, Timeout: r.config.API.Timeout(), Transport: r.rt},
		services.WithLogger(shared.WithLogger(r.logger, "component", "api")),
		services.WithRateLimit(r.config.API.RateLimit, r.config.API.Burst),
	)

	r.session = session.New(r.api, shared.WithLogger(r.logger, "component", "session"))
	r.session.SetCookieClearer(func(ctx context.Context) error { return jar.Clear(ctx, base) })
	r.unsubscribe = r.session.Subscribe(func(session.ExpiredEvent) {
		fmt.Fprintln(r.errOut, r.painter.Warn(sessionExpiredMsg))
	})

	r.tasks = services.NewTasksClient(r.api)
	r.calendar = services.NewCalendarClient(r.api)
	r.google = services.NewGoogleClient(r.api)

	cache := repositories.NewDayCacheRepository(r.db)
	if n, err := cache.Prune(ctx, time.Now().Add(-dayCacheRetention)); err != nil {
		r.logger.Warn("failed to prune day cache", "error", err)
	} else if n > 0 {
		r.logger.Debug("pruned day cache", "rows", n)
	}

	r.progress = make(chan tasks.ProgressUpdate, 16)
	r.board = tasks.NewBoard(r.calendar, r.tasks,
		tasks.WithCache(cache),
		tasks.WithProgress(r.progress),
		tasks.WithLogger(shared.WithLogger(r.logger, "component", "board")),
	)

	ok, err := r.session.RefreshAuth(ctx)
	if err != nil {
		r.logger.Warn("could not check for an existing session", "error", err)
	} else {
		r.logger.Debug("session probe", "authenticated", ok)
	}
	return nil
}

// close waits for background logout calls and releases the database.
func (r *Runner) close() error {
	if r.session != nil {
		r.session.Wait()
	}
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// requireAuth fails when there is no authenticated session.
func (r *Runner) requireAuth() error {
	if r.session.State() != session.Authenticated {
		return fmt.Errorf("%w: not logged in, run 'revu auth login'", shared.ErrUnauthorized)
	}
	return nil
}

// drainProgress prints queued board updates. It always empties the queue and
// returns the first write error.
func (r *Runner) drainProgress() error {
	var werr error
	for {
		select {
		case u := <-r.progress:
			r.logger.Debug(u.Message, "phase", u.Phase)
			switch u.Phase {
			case tasks.CachedDay, tasks.RemovePostponed, tasks.SaveTask:
				if err := r.writePlain("%s\n", u.Message); err != nil && werr == nil {
					werr = err
				}
			}
		default:
			return werr
		}
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

// write sends rendered output to --output when set, otherwise to the runner's output.
func (r *Runner) write(cmd *cli.Command, data []byte) error {
	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFile(path, data); err != nil {
			return err
		}
		r.logger.Info("wrote output", "path", path)
		return nil
	}
	_, err := r.output.Write(data)
	return err
}
