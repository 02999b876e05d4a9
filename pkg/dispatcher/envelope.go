// Package dispatcher routes incoming COMMS messages to engine methods.
package dispatcher

import (
	"encoding/json"

	"github.com/morezero/operation-engine/pkg/token"
)

// EngineRequest is the JSON envelope for incoming COMMS engine requests.
type EngineRequest struct {
	ID     string             `json:"id"`
	Type   string             `json:"type"`
	Method string             `json:"method"`
	Params json.RawMessage    `json:"params"`
	Ctx    *InvocationContext `json:"ctx,omitempty"`
}

// EngineResponse is the JSON envelope for COMMS engine responses.
// Status follows HTTP status code semantics.
type EngineResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Status int          `json:"status"`
	Result interface{}  `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`

	// RequestID is ctx.requestId, or the ID generated when the request had none.
	RequestID string `json:"requestId,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Retryable bool        `json:"retryable"`
}

// InvocationContext holds context from the caller. Token takes precedence
// over UserID and Roles, which are only honoured from trusted callers.
type InvocationContext struct {
	Token         string   `json:"token,omitempty"`
	UserID        string   `json:"userId,omitempty"`
	Roles         []string `json:"roles,omitempty"`
	Locale        string   `json:"locale,omitempty"`
	RequestID     string   `json:"requestId,omitempty"`
	CorrelationID string   `json:"correlationId,omitempty"`
	TimeoutMs     int      `json:"timeoutMs,omitempty"`
}

// EntityRef identifies the target entity of a call.
type EntityRef struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Ancestors []string `json:"ancestors,omitempty"`
}

// InvokeParams are the params of the invoke method. Body carries the
// operation arguments; Query carries flat string arguments.
type InvokeParams struct {
	Entity    EntityRef           `json:"entity"`
	Operation string              `json:"operation"`
	Body      token.Value         `json:"body"`
	Query     map[string][]string `json:"query,omitempty"`
}

// ActionsParams are the params of the actions method.
type ActionsParams struct {
	Entity   EntityRef `json:"entity"`
	Scenario string    `json:"scenario,omitempty"`
}

// OperationsParams are the params of the operations method.
type OperationsParams struct {
	Name string `json:"name,omitempty"`
}

// ActionInfo is one entry of an actions listing.
type ActionInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName,omitempty"`
	Description string   `json:"description,omitempty"`
	Icon        string   `json:"icon,omitempty"`
	Scenarios   []string `json:"scenarios,omitempty"`
	Forbidden   bool     `json:"forbidden"`
}
