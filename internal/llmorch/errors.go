package llmorch

import "fmt"

// LLMError reports a failure talking to the provider itself. Reason is
// "circuit_open" when the circuit breaker rejects the call and "network"
// for every other failure, timeouts, HTTP error statuses and
// authentication rejections included. The orchestrator releases the
// claim and moves on; no automatic retry.
type LLMError struct {
	Reason string // circuit_open|network
	Err    error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("llm error (%s): %v", e.Reason, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }

// StructureError reports that the provider replied but the payload was
// not a single well-formed JSON object, was missing a mandatory key, or
// violated a cardinality/neutrality invariant. The raw body is always
// saved to disk before this error surfaces.
type StructureError struct {
	Reason  string // not_json|validation failed
	Details []string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("structure error (%s): %v", e.Reason, e.Details)
}
