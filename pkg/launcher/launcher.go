// Package launcher runs one or more long-lived App processes and waits for
// all of them to finish, logging start/stop transitions.
package launcher

import (
	"fmt"
	"sync"

	"github.com/cronos-labs/xdr/common/console"
	"github.com/cronos-labs/xdr/pkg/mlog"
)

// App is a long-running process registered with a Launcher.
type App interface {
	Run(l *Launcher) error
}

// Option configures a Launcher.
type Option func(l *Launcher)

// WithLogger attaches a logger to the launcher.
func WithLogger(logger mlog.Logger) Option {
	return func(l *Launcher) { l.Logger = logger }
}

// WithApp registers an App to run when Run is called.
func WithApp(name string, app App) Option {
	return func(l *Launcher) { l.Add(name, app) }
}

// Launcher supervises a set of Apps, running each in its own goroutine and
// blocking until every one of them returns.
type Launcher struct {
	Logger mlog.Logger
	apps   map[string]App
	wg     *sync.WaitGroup
}

// Add registers an App under name.
func (l *Launcher) Add(name string, a App) *Launcher {
	l.apps[name] = a
	return l
}

// Run starts every registered App and waits for all of them to return.
func (l *Launcher) Run() {
	l.wg.Add(len(l.apps))

	fmt.Println(console.Title("Launcher Run"))
	l.Logger.Infof("launcher: starting %d app(s)", len(l.apps))

	for name, app := range l.apps {
		go func(name string, app App) {
			defer l.wg.Done()

			l.Logger.Infof("launcher: app (%s) starting", name)

			if err := app.Run(l); err != nil {
				l.Logger.Errorf("launcher: app (%s) error: %s", name, err)
			}

			l.Logger.Infof("launcher: app (%s) finished", name)
		}(name, app)
	}

	l.wg.Wait()
	l.Logger.Info("launcher: terminated")
}

// New creates a Launcher with the given options applied.
func New(opts ...Option) *Launcher {
	l := &Launcher{
		apps: make(map[string]App),
		wg:   new(sync.WaitGroup),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}
