package bootstrap

import (
	"context"

	"github.com/cronos-labs/xdr/internal/adapters/httpin"
	"github.com/cronos-labs/xdr/pkg/launcher"
	"github.com/cronos-labs/xdr/pkg/mlog"
)

// Server wraps a fiber app in the launcher.App contract so it can be
// supervised alongside any other long-running component (the optional
// cache mirror and trace publisher included).
type Server struct {
	Address string
	Service *Service
	Logger  mlog.Logger
}

var _ launcher.App = (*Server)(nil)

// Run starts the optional background components, then serves HTTP until the
// process is asked to stop. It implements launcher.App.
func (s *Server) Run(l *launcher.Launcher) error {
	ctx := context.Background()

	s.Service.cacheMirror.Start(ctx)
	defer s.Service.cacheMirror.Close()

	s.Service.eventBus.Start(ctx)
	defer s.Service.eventBus.Close()

	app := httpin.NewRouter(*s.Service.Router)

	s.Logger.Infof("xdr: listening on %s", s.Address)

	return app.Listen(s.Address)
}
