package httpin

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/cronos-labs/xdr/internal/domain/pipeline"
	"github.com/cronos-labs/xdr/pkg/nethttp"
)

// DataPlaneHandler handles every request outside the /_xdr/ prefix, running
// it through the payment-challenge pipeline and translating the resulting
// Outcome into an HTTP response.
func DataPlaneHandler(p *pipeline.Pipeline) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := pipeline.Request{
			AgentID:       c.Get(nethttp.HeaderAgentID),
			UpstreamHost:  c.Get(nethttp.HeaderUpstreamHost),
			Authorization: c.Get(fiber.HeaderAuthorization),
			RequestID:     c.Get(nethttp.HeaderCorrelationID),
			Method:        c.Method(),
			Path:          c.Path(),
			RawQuery:      string(c.Request().URI().QueryString()),
			Header:        cloneFiberHeader(c),
			Body:          c.Body(),
		}

		if raw := c.Get(nethttp.HeaderSimulatePay); raw != "" {
			if b, err := strconv.ParseBool(raw); err == nil {
				req.SimulatePayment = &b
			}
		}

		out := p.Handle(c.UserContext(), req)

		for k, v := range out.Header {
			c.Set(k, v)
		}

		if out.JSONBody != nil {
			return c.Status(out.Status).JSON(out.JSONBody)
		}

		if out.ContentType != "" {
			c.Set(fiber.HeaderContentType, out.ContentType)
		}

		return c.Status(out.Status).Send(out.Body)
	}
}

func cloneFiberHeader(c *fiber.Ctx) http.Header {
	h := make(http.Header)

	c.Request().Header.VisitAll(func(key, value []byte) {
		h.Add(string(key), string(value))
	})

	return h
}
