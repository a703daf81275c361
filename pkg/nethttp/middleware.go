// Package nethttp holds the fiber middleware and response helpers shared by
// the control-plane and data-plane routers.
package nethttp

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	gid "github.com/google/uuid"

	"github.com/cronos-labs/xdr/pkg/mlog"
	"github.com/cronos-labs/xdr/pkg/mosenv"
)

const (
	defaultAccessControlAllowOrigin  = "*"
	defaultAccessControlAllowMethods = "POST, GET, OPTIONS, PUT, DELETE, PATCH"
	defaultAccessControlAllowHeaders = "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, " +
		HeaderAgentID + ", " + HeaderUpstreamHost + ", " + HeaderSimulatePay
)

// WithCORS is a middleware that enables CORS, configurable via env vars.
func WithCORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     mosenv.GetOrDefault("ACCESS_CONTROL_ALLOW_ORIGIN", defaultAccessControlAllowOrigin),
		AllowMethods:     mosenv.GetOrDefault("ACCESS_CONTROL_ALLOW_METHODS", defaultAccessControlAllowMethods),
		AllowHeaders:     mosenv.GetOrDefault("ACCESS_CONTROL_ALLOW_HEADERS", defaultAccessControlAllowHeaders),
		ExposeHeaders:    HeaderTxHash + ", " + HeaderChainID + ", " + HeaderBalanceAfter,
		AllowCredentials: true,
	})
}

// WithCorrelationID stamps every request and response with an X-Correlation-ID,
// generating one when the caller did not supply it.
func WithCorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cid := c.Get(HeaderCorrelationID)
		if cid == "" {
			cid = gid.New().String()
		}

		c.Set(HeaderCorrelationID, cid)
		c.Request().Header.Set(HeaderCorrelationID, cid)

		return c.Next()
	}
}

// RequestInfo holds the fields of one Apache Common Log Format entry.
type RequestInfo struct {
	Method        string
	URI           string
	RemoteAddress string
	Status        int
	Date          time.Time
	Duration      time.Duration
	UserAgent     string
	CorrelationID string
	Protocol      string
	Size          int
}

func newRequestInfo(c *fiber.Ctx) *RequestInfo {
	return &RequestInfo{
		Method:        c.Method(),
		URI:           c.OriginalURL(),
		UserAgent:     c.Get(HeaderUserAgent),
		CorrelationID: c.Get(HeaderCorrelationID),
		RemoteAddress: c.IP(),
		Protocol:      c.Protocol(),
		Date:          time.Now().UTC(),
	}
}

// CLFString renders r in a Common Log Format-like layout.
// Ref: https://httpd.apache.org/docs/trunk/logs.html#common
func (r *RequestInfo) CLFString() string {
	return strings.Join([]string{
		r.RemoteAddress,
		`"` + r.Method,
		r.URI,
		`"` + r.Protocol,
		strconv.Itoa(r.Status),
		strconv.Itoa(r.Size),
		r.CorrelationID,
		strconv.FormatInt(r.Duration.Milliseconds(), 10) + "ms",
	}, " ")
}

// WithHTTPLogging logs one access-log line per request via logger.
func WithHTTPLogging(logger mlog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/_xdr/health" {
			return c.Next()
		}

		info := newRequestInfo(c)

		err := c.Next()

		info.Status = c.Response().StatusCode()
		info.Size = len(c.Response().Body())
		info.Duration = time.Now().UTC().Sub(info.Date)

		logger.WithFields(HeaderCorrelationID, info.CorrelationID).Info(info.CLFString())

		return err
	}
}
