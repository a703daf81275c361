package httpin

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/cronos-labs/xdr/internal/domain/chaos"
	"github.com/cronos-labs/xdr/internal/domain/ledger"
	"github.com/cronos-labs/xdr/internal/domain/trace"
	"github.com/cronos-labs/xdr/pkg/nethttp"
)

const microPerUnit = 1_000_000

func toMicro(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(microPerUnit)).IntPart()
}

func toDecimal(micro int64) float64 {
	f, _ := decimal.New(micro, 0).Div(decimal.NewFromInt(microPerUnit)).Round(2).Float64()
	return f
}

// budgetRequest is the body of POST /_xdr/budget/{agent_id}.
type budgetRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
}

// accountSnapshot is the JSON shape of a ledger account returned to clients.
type accountSnapshot struct {
	AgentID      string  `json:"agent_id"`
	BalanceUSDC  float64 `json:"balance_usdc"`
	TotalSpend   float64 `json:"total_spend"`
	PaymentCount int64   `json:"payment_count"`
	ChaosCursor  uint64  `json:"chaos_cursor"`
}

func toSnapshot(a ledger.Account, cursor uint64) accountSnapshot {
	return accountSnapshot{
		AgentID:      a.AgentID,
		BalanceUSDC:  toDecimal(a.BalanceMicro),
		TotalSpend:   toDecimal(a.SpendMicro),
		PaymentCount: a.PaymentCount,
		ChaosCursor:  cursor,
	}
}

// SetBudgetHandler handles POST /_xdr/budget/:agent_id.
func SetBudgetHandler(l *ledger.Ledger, ch *chaos.Engine) fiber.Handler {
	return nethttp.WithBody(&budgetRequest{}, func(p any, c *fiber.Ctx) error {
		body := p.(*budgetRequest)

		agentID := c.Params("agent_id")

		snap := l.SetBudget(agentID, toMicro(body.Amount))

		return c.Status(fiber.StatusOK).JSON(toSnapshot(snap, ch.CursorOf(agentID)))
	})
}

// StatusHandler handles GET /_xdr/status/:agent_id.
func StatusHandler(l *ledger.Ledger, ch *chaos.Engine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agentID := c.Params("agent_id")

		snap, err := l.Status(agentID)
		if err != nil {
			return nethttp.NotFound(c, "Not Found", "no account found for this agent")
		}

		return c.Status(fiber.StatusOK).JSON(toSnapshot(snap, ch.CursorOf(agentID)))
	}
}

// chaosRequest is the body of POST /_xdr/chaos.
type chaosRequest struct {
	Enabled      bool     `json:"enabled"`
	Seed         *uint64  `json:"seed"`
	FailureRate  *float64 `json:"failure_rate"`
	MinLatencyMS *int64   `json:"min_latency_ms"`
	MaxLatencyMS *int64   `json:"max_latency_ms"`
	RugRate      *float64 `json:"rug_rate"`
}

// ConfigureChaosHandler handles POST /_xdr/chaos.
func ConfigureChaosHandler(ch *chaos.Engine) fiber.Handler {
	return nethttp.WithBody(&chaosRequest{}, func(p any, c *fiber.Ctx) error {
		body := p.(*chaosRequest)

		cfg := chaos.Config{Enabled: body.Enabled}

		if body.Seed != nil {
			cfg.Seed = *body.Seed
		}

		if body.FailureRate != nil {
			cfg.FailureRate = *body.FailureRate
		}

		if body.MinLatencyMS != nil {
			cfg.MinLatencyMS = *body.MinLatencyMS
		}

		if body.MaxLatencyMS != nil {
			cfg.MaxLatencyMS = *body.MaxLatencyMS
		}

		if body.RugRate != nil {
			cfg.RugRate = *body.RugRate
		}

		ch.Configure(cfg)

		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
}

// traceEntryView is the JSON shape of one trace.Entry.
type traceEntryView struct {
	Timestamp    string   `json:"timestamp"`
	AgentID      string   `json:"agent_id"`
	Method       string   `json:"method"`
	UpstreamHost string   `json:"upstream_host"`
	Path         string   `json:"path"`
	Status       int      `json:"status"`
	DurationMS   int64    `json:"duration_ms"`
	Annotations  []string `json:"annotations,omitempty"`
	TxHash       string   `json:"tx_hash,omitempty"`
	RequestID    string   `json:"request_id,omitempty"`
}

// LogsHandler handles GET /_xdr/logs?agent={id}&limit={n}.
func LogsHandler(t *trace.Buffer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agentID := c.Query("agent")

		limit := 100
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		entries := t.Recent(agentID, limit)

		views := make([]traceEntryView, 0, len(entries))
		for _, e := range entries {
			views = append(views, traceEntryView{
				Timestamp:    e.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
				AgentID:      e.AgentID,
				Method:       e.Method,
				UpstreamHost: e.UpstreamHost,
				Path:         e.Path,
				Status:       e.Status,
				DurationMS:   e.Duration.Milliseconds(),
				Annotations:  e.Annotations,
				TxHash:       e.TxHash,
				RequestID:    e.RequestID,
			})
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{"entries": views})
	}
}
