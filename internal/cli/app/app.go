// Package app wires the client's stores, HTTP client and renderer into
// one object the commands run against.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/coinvest-dev/coinvest/internal/cli/auth"
	"github.com/coinvest-dev/coinvest/internal/cli/client"
	"github.com/coinvest-dev/coinvest/internal/cli/guard"
	"github.com/coinvest-dev/coinvest/internal/cli/notify"
	"github.com/coinvest-dev/coinvest/internal/cli/poller"
	"github.com/coinvest-dev/coinvest/internal/cli/routes"
	"github.com/coinvest-dev/coinvest/internal/cli/session"
	"github.com/coinvest-dev/coinvest/internal/cli/storage"
	"github.com/coinvest-dev/coinvest/internal/cli/theme"
	"github.com/coinvest-dev/coinvest/internal/cli/ui"
	"github.com/coinvest-dev/coinvest/internal/config"
	"github.com/coinvest-dev/coinvest/internal/logger"
)

const (
	// StateFile is the SQLite file inside the storage directory
	StateFile = "state.db"
	// ReturnToKey remembers the path a command was bounced away from so
	// the next login, usually another process, can send the user back.
	ReturnToKey = "return-to"
)

// Options overrides the pieces tests replace
type Options struct {
	Config *config.Config
	Out    io.Writer
	ErrOut io.Writer
	Format ui.Format

	// Logger skips logger.Init when set
	Logger     *zerolog.Logger
	Storage    storage.Backend
	Cookies    auth.CookieStore
	HTTPClient *http.Client
	Prompter   ui.Prompter
}

// App is one running client process
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Client   *client.Client
	Bridge   *storage.Bridge
	Watcher  *storage.Watcher
	Session  *session.Store
	Theme    *theme.Store
	Toasts   *notify.Store
	Console  *ui.Console
	Nav      *ui.Navigator
	Prompter ui.Prompter

	closers []func()
}

// New builds the client. Storage and keyring failures degrade to
// in-memory state for this process instead of failing.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(); err != nil {
			return nil, err
		}
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}

	var log zerolog.Logger
	if opts.Logger != nil {
		log = *opts.Logger
	} else {
		log = logger.Init(logger.Options{
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			Production: cfg.IsProduction(),
			Out:        opts.ErrOut,
		})
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		Console:  ui.NewConsole(opts.Out, opts.ErrOut, opts.Format),
		Nav:      ui.NewNavigator(routes.Home),
		Prompter: opts.Prompter,
	}
	if a.Prompter == nil {
		a.Prompter = ui.NewTerminalPrompter()
	}

	backend := opts.Storage
	if backend == nil {
		backend = openStorage(cfg, log)
	}
	a.Bridge = storage.NewBridge(backend, log)
	a.closers = append(a.closers, func() {
		if err := a.Bridge.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close storage")
		}
	})

	cookies := opts.Cookies
	if cookies == nil {
		cookies = openCookieStore(cfg, log)
	}

	clientOpts := []client.Option{
		client.WithCookieStore(cookies),
		client.WithLogger(log),
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, client.WithHTTPClient(opts.HTTPClient))
	}
	clientOpts = append(clientOpts, client.WithTimeout(cfg.API.Timeout))

	c, err := client.New(cfg.API.BaseURL, clientOpts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Client = c

	a.Toasts = notify.New(cfg.Notifications.MaxActive)
	a.closers = append(a.closers, a.Toasts.Close, a.Console.FollowToasts(a.Toasts))

	a.Theme = theme.New(a.Bridge, a.Console, log)
	a.closers = append(a.closers, a.Theme.Close)

	a.Session = session.New(c, c, a.Bridge, a.Nav, log)
	a.closers = append(a.closers, a.Session.Close)

	a.Watcher = storage.NewWatcher(a.Bridge, cfg.Storage.PollInterval, log)

	a.Nav.OnNavigate(func(path string) {
		log.Debug().Str("path", path).Msg("Navigated")
	})

	a.Session.Bootstrap()
	return a, nil
}

func openStorage(cfg *config.Config, log zerolog.Logger) storage.Backend {
	dir, err := cfg.StorageDir()
	if err == nil {
		err = os.MkdirAll(dir, 0o700)
	}
	if err == nil {
		var backend storage.Backend
		if backend, err = storage.OpenSQLite(filepath.Join(dir, StateFile)); err == nil {
			return backend
		}
	}
	log.Warn().Err(err).Msg("Persistent storage unavailable, keeping state in memory for this session")
	return storage.NewMemoryBackend()
}

func openCookieStore(cfg *config.Config, log zerolog.Logger) auth.CookieStore {
	store := auth.NewKeyringStore(cfg.API.KeyringService)
	if err := store.Available(); err != nil {
		log.Warn().Err(err).Msg("Session will not be remembered after this command")
		return auth.NewMemoryStore()
	}
	return store
}

// Close releases every resource in reverse order of acquisition
func (a *App) Close() {
	if a.Watcher != nil {
		a.Watcher.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Enter runs the route guard for path. A redirect navigates and returns a
// *guard.RedirectError; the command must not render anything then.
func (a *App) Enter(path string) error {
	path = routes.Clean(path)

	if routes.IsAuthPage(path) {
		a.Nav.Navigate(path)
		return nil
	}

	g, guarded := guard.ForPath(path)
	if !guarded {
		a.Nav.Navigate(path)
		return nil
	}

	decision := g.Evaluate(a.Session.State(), path)
	if decision.Kind == guard.Loading {
		a.Console.Loading()
		a.Session.Bootstrap()
		decision = g.Evaluate(a.Session.State(), path)
	}

	switch decision.Kind {
	case guard.Render:
		a.Nav.Navigate(path)
		return nil
	case guard.Redirect:
		target := decision.To
		if target == routes.Login {
			target = guard.LoginLocation(decision.From)
			a.Bridge.Write(ReturnToKey, decision.From)
		}
		a.Nav.Navigate(target)
		return &guard.RedirectError{Decision: decision}
	default:
		return fmt.Errorf("session is still loading")
	}
}

// ReturnTo is the path login should return to: the from parameter of the
// current login location, else the one remembered by an earlier redirect
func (a *App) ReturnTo() string {
	if from := routes.FromParam(a.Nav.Current()); from != "" {
		return from
	}
	return storage.Read(a.Bridge, ReturnToKey, "")
}

// ForgetReturnTo drops the remembered return path
func (a *App) ForgetReturnTo() {
	a.Bridge.Remove(ReturnToKey)
}

// StartPoller begins the unread-count poll for the authenticated session
func (a *App) StartPoller() (*poller.Poller, error) {
	p := poller.New(a.Client, a.Session, a.Toasts, a.Config.Notifications.PollInterval, a.Log)
	if err := p.Start(); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, p.Stop)
	return p, nil
}

// Context returns a context bounded by the request timeout
func (a *App) Context(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := a.Config.API.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(parent, timeout)
}

// Notify queues a toast with the configured ttl
func (a *App) Notify(message string, severity notify.Severity) string {
	return a.Toasts.Add(message, severity, a.Config.Notifications.TTL)
}
