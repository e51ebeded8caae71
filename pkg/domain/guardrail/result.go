package guardrail

import "fmt"

// ValidationResult is the return value of every validator and of the
// orchestrator itself. Invariant I1: Allowed=false implies Reason != "".
// Invariant I2: Modified=true implies ModifiedPayload != nil and Allowed=true.
type ValidationResult struct {
	Allowed         bool
	Modified        bool
	ModifiedPayload *string
	Reason          string
	Metadata        map[string]interface{}

	// BlockedResponse is the JSON-RPC -32000 envelope (spec §3), set by
	// the orchestrator whenever Allowed is false. Validators never set
	// this themselves; only the orchestrator's finish step does, since
	// only it knows the original payload to echo back.
	BlockedResponse *BlockedResponse
}

// Validate checks I1/I2 hold. It is a programming-error guard, not user
// input validation; the orchestrator does not call it and relies on
// Allow/Block/Redact to build results that satisfy both.
func (r *ValidationResult) Validate() error {
	if !r.Allowed && r.Reason == "" {
		return fmt.Errorf("blocked ValidationResult must carry a reason")
	}
	if r.Modified && (r.ModifiedPayload == nil || !r.Allowed) {
		return fmt.Errorf("modified ValidationResult must be allowed and carry a payload")
	}
	return nil
}

// Allow builds the canonical pass-through result.
func Allow() ValidationResult {
	return ValidationResult{Allowed: true}
}

// Block builds a block result with the given reason and metadata.
func Block(reason string, metadata map[string]interface{}) ValidationResult {
	return ValidationResult{Allowed: false, Reason: reason, Metadata: metadata}
}

// Redact builds an allow-with-modified-payload result.
func Redact(payload string, metadata map[string]interface{}) ValidationResult {
	return ValidationResult{Allowed: true, Modified: true, ModifiedPayload: &payload, Metadata: metadata}
}

// BlockedResponse is the JSON-RPC error envelope returned to the caller
// (and attached to the threat report) when a ValidationResult blocks.
type BlockedResponse struct {
	JSONRPC string            `json:"jsonrpc"`
	Error   BlockedResponseErr `json:"error"`
}

type BlockedResponseErr struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    BlockedResponseErrData `json:"data"`
}

type BlockedResponseErrData struct {
	Reason          string `json:"reason"`
	OriginalPayload string `json:"original_payload"`
}

// NewBlockedResponse constructs the canonical -32000 block envelope.
func NewBlockedResponse(reason, originalPayload string) BlockedResponse {
	return BlockedResponse{
		JSONRPC: "2.0",
		Error: BlockedResponseErr{
			Code:    -32000,
			Message: "Request blocked by security policy",
			Data: BlockedResponseErrData{
				Reason:          reason,
				OriginalPayload: originalPayload,
			},
		},
	}
}
