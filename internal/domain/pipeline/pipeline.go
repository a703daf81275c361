// Package pipeline implements the data-plane payment-challenge state
// machine: Arrive → ChaosCheck → PaymentCheck → [Challenge|Debit] →
// [Forward] → Respond. No stage in this package constructs an HTTP
// response directly — every terminal transition produces an *EarlyResponse*
// or a final *Outcome*, and a single adapter layer (internal/adapters/httpin)
// is the only place that knows how to translate either into bytes on the
// wire. This keeps the state machine testable without a running server.
package pipeline

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cronos-labs/xdr/internal/domain/chaos"
	"github.com/cronos-labs/xdr/internal/domain/forwarder"
	"github.com/cronos-labs/xdr/internal/domain/ledger"
	"github.com/cronos-labs/xdr/internal/domain/minter"
	"github.com/cronos-labs/xdr/internal/domain/trace"
)

// NetworkProfile is the immutable, startup-configured chain identity this
// XDR instance simulates.
type NetworkProfile struct {
	ChainID             uint32
	PricePerRequestMicro int64
	CurrencyLabel       string
	RecipientAddress    string
}

// Request is the data-plane request translated into pipeline terms. The
// HTTP adapter is responsible for extracting these fields from the wire
// request; AgentID/UpstreamHost are passed through empty (not absent) when
// the corresponding header was missing, so Arrive can 400 on them uniformly.
type Request struct {
	AgentID         string
	UpstreamHost    string
	SimulatePayment *bool // nil when the header was not present; defaults to true
	Authorization   string
	RequestID       string

	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Outcome is the terminal result of one data-plane request: either an
// EarlyResponse short-circuit or a forwarded upstream response.
type Outcome struct {
	Status int
	Header map[string]string
	// Body carries raw forwarded-response bytes; JSONBody carries a typed
	// struct for an early response. Exactly one of the two is set.
	Body        []byte
	JSONBody    any
	ContentType string
	Annotations []string
}

// Pipeline wires the Chaos Engine, Ledger, Minter, Forwarder, and trace
// buffer together and implements the request state machine.
type Pipeline struct {
	Profile   NetworkProfile
	Ledger    *ledger.Ledger
	Chaos     *chaos.Engine
	Minter    *minter.Minter
	Forwarder *forwarder.Forwarder
	Trace     *trace.Buffer

	// Sleep is invoked for chaos-injected latency; overridable in tests.
	Sleep func(time.Duration)
}

// New builds a Pipeline with its dependencies. Sleep defaults to time.Sleep.
func New(profile NetworkProfile, l *ledger.Ledger, c *chaos.Engine, m *minter.Minter, f *forwarder.Forwarder, t *trace.Buffer) *Pipeline {
	return &Pipeline{
		Profile:   profile,
		Ledger:    l,
		Chaos:     c,
		Minter:    m,
		Forwarder: f,
		Trace:     t,
		Sleep:     time.Sleep,
	}
}

// Handle runs req through the full state machine and returns the terminal
// Outcome, appending exactly one TraceEntry along the way.
func (p *Pipeline) Handle(ctx context.Context, req Request) Outcome {
	start := time.Now()

	// Arrive.
	if strings.TrimSpace(req.AgentID) == "" {
		return p.finish(req, start, toOutcome(NewClientError("missing X-Agent-ID header")), nil)
	}

	if strings.TrimSpace(req.UpstreamHost) == "" {
		return p.finish(req, start, toOutcome(NewClientError("missing X-Upstream-Host header")), nil)
	}

	simulatePayment := true
	if req.SimulatePayment != nil {
		simulatePayment = *req.SimulatePayment
	}

	// ChaosCheck.
	decision := p.Chaos.Decide(req.AgentID)

	var annotations []string

	if decision.LatencyMS > 0 {
		annotations = append(annotations, "chaos:latency")
		p.Sleep(time.Duration(decision.LatencyMS) * time.Millisecond)
	}

	if decision.PrePaymentStatus != 0 {
		annotations = append(annotations, "chaos:drop")

		early := &EarlyResponse{
			Kind:   KindChaosDrop,
			Status: decision.PrePaymentStatus,
			Body:   ClientErrorBody{Error: string(KindChaosDrop)},
		}

		return p.finish(req, start, toOutcome(early), annotations)
	}

	rugStatus := decision.PostPaymentStatus

	var txHash string

	if simulatePayment {
		p.Ledger.Ensure(req.AgentID)

		// PaymentCheck.
		token, ok := parseL402(req.Authorization)
		if !ok {
			invoice := p.Minter.MintInvoice(req.AgentID, p.Profile.PricePerRequestMicro)
			annotations = append(annotations, "payment:challenge")

			early := &EarlyResponse{
				Kind:   KindPaymentRequired,
				Status: http.StatusPaymentRequired,
				Body: ChallengeBody{
					Invoice:   invoice,
					Amount:    microToDecimal(p.Profile.PricePerRequestMicro),
					Currency:  p.Profile.CurrencyLabel,
					Recipient: p.Profile.RecipientAddress,
					ChainID:   p.Profile.ChainID,
				},
			}

			return p.finish(req, start, toOutcome(early), annotations)
		}

		_ = token // accepted as-is; see design notes on invoice uniqueness

		// Debit.
		receipt, err := p.Ledger.TryDebit(req.AgentID, p.Profile.PricePerRequestMicro)
		if err != nil {
			annotations = append(annotations, "budget:exceeded")

			insufficient, _ := err.(*ledger.ErrInsufficientFunds)

			early := &EarlyResponse{
				Kind:   KindBudgetExceeded,
				Status: http.StatusPaymentRequired,
				Body: BudgetExceededBody{
					Error:    string(KindBudgetExceeded),
					Balance:  microToDecimal(insufficient.BalanceMicro),
					Required: microToDecimal(insufficient.RequiredMicro),
				},
			}

			return p.finish(req, start, toOutcome(early), annotations)
		}

		annotations = append(annotations, "payment:accepted")
		txHash = minter.MintTxHash(p.Profile.ChainID, req.AgentID, uint64(receipt.Account.PaymentCount))
	}

	// Forward.
	upstreamResp, err := p.Forwarder.Forward(ctx, forwarder.Request{
		Method:       req.Method,
		UpstreamHost: req.UpstreamHost,
		Path:         req.Path,
		RawQuery:     req.RawQuery,
		Header:       req.Header,
		Body:         req.Body,
	})
	if err != nil {
		annotations = append(annotations, "upstream:unavailable")

		early := &EarlyResponse{
			Kind:   KindUpstreamUnavailable,
			Status: http.StatusGatewayTimeout,
			Body:   ClientErrorBody{Error: string(KindUpstreamUnavailable)},
		}

		return p.finish(req, start, toOutcome(early), annotations)
	}

	status := upstreamResp.Status
	if rugStatus != 0 {
		status = rugStatus
		annotations = append(annotations, "chaos:rug")
	}

	outcome := Outcome{
		Status:      status,
		Header:      map[string]string{},
		Body:        upstreamResp.Body,
		ContentType: upstreamResp.Header.Get("Content-Type"),
		Annotations: annotations,
	}

	if ct := upstreamResp.Header.Get("Content-Type"); ct != "" {
		outcome.Header["Content-Type"] = ct
	}

	if txHash != "" {
		snap, _ := p.Ledger.Status(req.AgentID)
		outcome.Header["X-XDR-Tx-Hash"] = txHash
		outcome.Header["X-XDR-Chain-Id"] = strconv.FormatUint(uint64(p.Profile.ChainID), 10)
		outcome.Header["X-XDR-Balance-After"] = strconv.FormatFloat(microToDecimal(snap.BalanceMicro), 'f', 2, 64)
	}

	return p.finish(req, start, outcome, annotations)
}

func (p *Pipeline) finish(req Request, start time.Time, outcome Outcome, annotations []string) Outcome {
	if annotations == nil {
		annotations = outcome.Annotations
	}

	entry := trace.Entry{
		Timestamp:    start.UTC(),
		AgentID:      req.AgentID,
		Method:       req.Method,
		UpstreamHost: req.UpstreamHost,
		Path:         req.Path,
		Status:       outcome.Status,
		Duration:     time.Since(start),
		Annotations:  annotations,
		TxHash:       outcome.Header["X-XDR-Tx-Hash"],
		RequestID:    req.RequestID,
	}

	if p.Trace != nil {
		p.Trace.Append(entry)
	}

	outcome.Annotations = annotations

	return outcome
}

func toOutcome(e *EarlyResponse) Outcome {
	return Outcome{
		Status:      e.Status,
		Header:      e.Headers,
		Body:        nil,
		ContentType: "application/json",
		Annotations: nil,
	}.withBody(e.Body)
}

// withBody threads the raw, not-yet-serialized body value through Outcome;
// the HTTP adapter serializes it. Kept distinct from Body ([]byte) because
// early responses carry a typed struct, while forwarded responses carry raw
// upstream bytes.
func (o Outcome) withBody(body any) Outcome {
	o.JSONBody = body
	return o
}

func parseL402(authorization string) (string, bool) {
	const prefix = "L402 "
	if !strings.HasPrefix(authorization, prefix) {
		return "", false
	}

	token := strings.TrimSpace(strings.TrimPrefix(authorization, prefix))
	if token == "" {
		return "", false
	}

	return token, true
}

func microToDecimal(micro int64) float64 {
	return float64(micro) / 1_000_000
}
