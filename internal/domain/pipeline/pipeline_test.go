package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cronos-labs/xdr/internal/domain/chaos"
	"github.com/cronos-labs/xdr/internal/domain/forwarder"
	"github.com/cronos-labs/xdr/internal/domain/ledger"
	"github.com/cronos-labs/xdr/internal/domain/minter"
	"github.com/cronos-labs/xdr/internal/domain/trace"
)

const price = 10_000 // 0.01 USDC in micro-units

func newTestPipeline(t *testing.T, chaosCfg chaos.Config, echoBody string) (*Pipeline, *httptest.Server) {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(echoBody))
	}))
	t.Cleanup(upstream.Close)

	p := New(
		NetworkProfile{ChainID: 338, PricePerRequestMicro: price, CurrencyLabel: "USDC", RecipientAddress: "0xrecipient"},
		ledger.New(nil),
		chaos.NewEngine(chaosCfg),
		minter.New(),
		forwarder.New(forwarder.Config{UseHTTP: true}),
		trace.NewBuffer(nil),
	)
	p.Sleep = func(time.Duration) {} // never really sleep in tests

	return p, upstream
}

func baseRequest(p *Pipeline, agentID, upstreamHost string) Request {
	return Request{
		AgentID:      agentID,
		UpstreamHost: upstreamHost,
		Method:       http.MethodPost,
		Path:         "/v1/x",
		Header:       http.Header{},
	}
}

// S1 — cold agent, no payment token.
func TestScenario_ColdAgentNoPaymentToken(t *testing.T) {
	p, upstream := newTestPipeline(t, chaos.Config{Enabled: false}, "echo")

	req := baseRequest(p, "a1", upstream.Listener.Addr().String())
	out := p.Handle(context.Background(), req)

	assert.Equal(t, http.StatusPaymentRequired, out.Status)

	body, ok := out.JSONBody.(ChallengeBody)
	require.True(t, ok)
	assert.Equal(t, 0.01, body.Amount)
	assert.Equal(t, "USDC", body.Currency)
	assert.Equal(t, uint32(338), body.ChainID)

	snap, err := p.Ledger.Status("a1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.BalanceMicro)
	assert.Equal(t, int64(0), snap.PaymentCount)
}

// S2 — fund then pay.
func TestScenario_FundThenPay(t *testing.T) {
	p, upstream := newTestPipeline(t, chaos.Config{Enabled: false}, `{"echo":true}`)

	p.Ledger.Fund("a1", 1_000_000) // 1.00 USDC

	req := baseRequest(p, "a1", upstream.Listener.Addr().String())
	req.Authorization = "L402 tok"

	out := p.Handle(context.Background(), req)

	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, `{"echo":true}`, string(out.Body))
	assert.Regexp(t, `^0x[0-9a-f]{64}$`, out.Header["X-XDR-Tx-Hash"])

	snap, err := p.Ledger.Status("a1")
	require.NoError(t, err)
	assert.Equal(t, int64(990_000), snap.BalanceMicro)
	assert.Equal(t, int64(10_000), snap.SpendMicro)
	assert.Equal(t, int64(1), snap.PaymentCount)
}

// S3 — budget exceeded.
func TestScenario_BudgetExceeded(t *testing.T) {
	p, upstream := newTestPipeline(t, chaos.Config{Enabled: false}, "echo")

	p.Ledger.Fund("a1", price) // exactly one request's worth

	req := baseRequest(p, "a1", upstream.Listener.Addr().String())
	req.Authorization = "L402 tok"

	first := p.Handle(context.Background(), req)
	assert.Equal(t, http.StatusOK, first.Status)

	second := p.Handle(context.Background(), req)
	assert.Equal(t, http.StatusPaymentRequired, second.Status)

	body, ok := second.JSONBody.(BudgetExceededBody)
	require.True(t, ok)
	assert.Equal(t, "Budget Exceeded", body.Error)
	assert.Equal(t, 0.0, body.Balance)
	assert.Equal(t, 0.01, body.Required)

	snap, err := p.Ledger.Status("a1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.PaymentCount)
}

// S4 — deterministic chaos replay.
func TestScenario_DeterministicChaosReplay(t *testing.T) {
	run := func() []int {
		p, upstream := newTestPipeline(t, chaos.Config{Enabled: true, Seed: 123, FailureRate: 0.5}, "echo")
		p.Ledger.Fund("a2", 10*price)

		statuses := make([]int, 10)

		for i := range statuses {
			req := baseRequest(p, "a2", upstream.Listener.Addr().String())
			req.Authorization = "L402 tok"
			statuses[i] = p.Handle(context.Background(), req).Status
		}

		return statuses
	}

	assert.Equal(t, run(), run())
}

// S5 — rug pull: debit stands even though the upstream response is overridden.
func TestScenario_RugPull(t *testing.T) {
	p, upstream := newTestPipeline(t, chaos.Config{Enabled: true, Seed: 7, FailureRate: 0.0, RugRate: 1.0}, "echo")
	p.Ledger.Fund("a1", 1_000_000)

	req := baseRequest(p, "a1", upstream.Listener.Addr().String())
	req.Authorization = "L402 tok"

	out := p.Handle(context.Background(), req)
	assert.Equal(t, http.StatusInternalServerError, out.Status)

	snap, err := p.Ledger.Status("a1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.PaymentCount)
	assert.Equal(t, int64(990_000), snap.BalanceMicro)
}

// S6 — admin isolation: unknown agent stays 404 and is never created by a lookup.
func TestScenario_StatusOnGhostNeverCreatesAccount(t *testing.T) {
	p, _ := newTestPipeline(t, chaos.Config{Enabled: false}, "echo")

	_, err := p.Ledger.Status("ghost")
	require.ErrorIs(t, err, ledger.ErrNotFound)

	_, err = p.Ledger.Status("ghost")
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestHandle_MissingAgentIDIsClientError(t *testing.T) {
	p, upstream := newTestPipeline(t, chaos.Config{Enabled: false}, "echo")

	req := baseRequest(p, "", upstream.Listener.Addr().String())
	out := p.Handle(context.Background(), req)

	assert.Equal(t, http.StatusBadRequest, out.Status)
}

func TestHandle_MissingUpstreamHostIsClientError(t *testing.T) {
	p, _ := newTestPipeline(t, chaos.Config{Enabled: false}, "echo")

	req := baseRequest(p, "a1", "")
	out := p.Handle(context.Background(), req)

	assert.Equal(t, http.StatusBadRequest, out.Status)
}

func TestHandle_SimulatePaymentFalseSkipsPaymentState(t *testing.T) {
	p, upstream := newTestPipeline(t, chaos.Config{Enabled: false}, "free")

	f := false
	req := baseRequest(p, "a1", upstream.Listener.Addr().String())
	req.SimulatePayment = &f

	out := p.Handle(context.Background(), req)
	assert.Equal(t, http.StatusOK, out.Status)
	assert.Equal(t, "free", string(out.Body))

	snap, err := p.Ledger.Status("a1")
	require.ErrorIs(t, err, ledger.ErrNotFound)
	_ = snap
}
