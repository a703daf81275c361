package pipeline

import "github.com/gofiber/fiber/v2"

// Kind enumerates the taxonomy of terminal outcomes the pipeline can produce.
// Every EarlyResponse carries exactly one Kind next to the HTTP status that
// the stage building it chose; the HTTP adapter only writes that status and
// body to the wire.
type Kind string

const (
	// KindClientError is a malformed or missing input: 400.
	KindClientError Kind = "Client Error"
	// KindPaymentRequired is the normal 402 challenge issued when the
	// Authorization header carries no non-empty "L402 " token.
	KindPaymentRequired Kind = "Payment Required"
	// KindBudgetExceeded is a 402 returned when the ledger declines a debit.
	KindBudgetExceeded Kind = "Budget Exceeded"
	// KindChaosDrop is an injected pre-payment failure (503).
	KindChaosDrop Kind = "Chaos Drop"
	// KindRug is an injected post-payment failure (500); the debit stands.
	KindRug Kind = "Rug"
	// KindUpstreamUnavailable is a 504: the upstream did not respond in time.
	KindUpstreamUnavailable Kind = "Upstream Unavailable"
	// KindNotFound is a 404 on the control plane.
	KindNotFound Kind = "Not Found"
)

// EarlyResponse is returned by a pipeline stage to short-circuit the
// remaining stages. No stage constructs an HTTP response directly; this
// keeps the state machine testable independent of fiber.
type EarlyResponse struct {
	Kind    Kind
	Status  int
	Body    any
	Headers map[string]string

	// Annotation records the trace annotation this outcome should be logged
	// with (e.g. "chaos:drop", "budget:exceeded").
	Annotation string
}

// Error implements the error interface so an EarlyResponse can be returned
// and propagated like any other Go error inside the pipeline.
func (e *EarlyResponse) Error() string {
	return string(e.Kind)
}

// ChallengeBody is the 402 body returned when no payment token is present.
type ChallengeBody struct {
	Invoice           string  `json:"x402_invoice"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	Recipient         string  `json:"recipient"`
	ChainID           uint32  `json:"chain_id"`
	InvoiceExpiresAt  string  `json:"invoice_expires_at,omitempty"`
}

// BudgetExceededBody is the 402 body returned when a debit is declined.
type BudgetExceededBody struct {
	Error    string  `json:"error"`
	Balance  float64 `json:"balance"`
	Required float64 `json:"required"`
}

// ClientErrorBody is the generic {"error": ...} envelope for 400s and 404s.
type ClientErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewClientError builds a 400 EarlyResponse for a malformed or missing input.
func NewClientError(message string) *EarlyResponse {
	return &EarlyResponse{
		Kind:   KindClientError,
		Status: fiber.StatusBadRequest,
		Body:   ClientErrorBody{Error: string(KindClientError), Message: message},
	}
}

// NewNotFound builds a 404 EarlyResponse, used by control-plane lookups.
func NewNotFound(message string) *EarlyResponse {
	return &EarlyResponse{
		Kind:   KindNotFound,
		Status: fiber.StatusNotFound,
		Body:   ClientErrorBody{Error: string(KindNotFound), Message: message},
	}
}
