package nethttp

// Header names used by the control-plane and data-plane middleware chains.
const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderUserAgent     = "User-Agent"
	HeaderAgentID       = "X-Agent-ID"
	HeaderUpstreamHost  = "X-Upstream-Host"
	HeaderSimulatePay   = "X-Simulate-Payment"
	HeaderTxHash        = "X-XDR-Tx-Hash"
	HeaderChainID       = "X-XDR-Chain-Id"
	HeaderBalanceAfter  = "X-XDR-Balance-After"
)
