// Package httpin binds the domain packages onto gofiber/fiber/v2, mirroring
// the router/middleware shape of the teacher's bootstrap/http layer: CORS,
// correlation ID, request logging, then route registration — control-plane
// routes under /_xdr/ first, a data-plane catch-all last.
package httpin

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cronos-labs/xdr/internal/domain/chaos"
	"github.com/cronos-labs/xdr/internal/domain/ledger"
	"github.com/cronos-labs/xdr/internal/domain/pipeline"
	"github.com/cronos-labs/xdr/internal/domain/trace"
	"github.com/cronos-labs/xdr/pkg/mlog"
	"github.com/cronos-labs/xdr/pkg/nethttp"
)

// Deps are the components the router needs to bind handlers to.
type Deps struct {
	Pipeline *pipeline.Pipeline
	Ledger   *ledger.Ledger
	Chaos    *chaos.Engine
	Trace    *trace.Buffer
	Logger   mlog.Logger
	Version  string
}

// NewRouter builds the fiber.App for one XDR instance.
func NewRouter(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(nethttp.WithCORS())
	app.Use(nethttp.WithCorrelationID())
	app.Use(nethttp.WithHTTPLogging(d.Logger))

	registerControlPlane(app, d)

	app.Use(DataPlaneHandler(d.Pipeline))

	return app
}

func registerControlPlane(app *fiber.App, d Deps) {
	admin := app.Group("/_xdr")

	admin.Get("/health", nethttp.Health)
	admin.Get("/version", nethttp.Version(d.Version))

	admin.Post("/budget/:agent_id", SetBudgetHandler(d.Ledger, d.Chaos))
	admin.Get("/status/:agent_id", StatusHandler(d.Ledger, d.Chaos))
	admin.Post("/chaos", ConfigureChaosHandler(d.Chaos))
	admin.Get("/logs", LogsHandler(d.Trace))
}

func errorHandler(c *fiber.Ctx, err error) error {
	if fe, ok := err.(*fiber.Error); ok && fe.Code == fiber.StatusNotFound {
		return nethttp.NotFound(c, "Not Found", fe.Message)
	}

	return nethttp.InternalServerError(c, "Internal Server Error", err.Error())
}
