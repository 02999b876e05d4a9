package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/morezero/operation-engine/pkg/binder"
	"github.com/morezero/operation-engine/pkg/engine"
	"github.com/morezero/operation-engine/pkg/identity"
	"github.com/morezero/operation-engine/pkg/metrics"
	"github.com/morezero/operation-engine/pkg/operation"
	"github.com/morezero/operation-engine/pkg/registry"
	"github.com/morezero/operation-engine/pkg/resolver"
)

const logPrefix = "dispatcher:dispatch"

// Error codes produced by the transport shell in addition to the engine codes.
const (
	CodeMethodNotFound  = "METHOD_NOT_FOUND"
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeTimeout         = "TIMEOUT"
)

// EnvironmentDevelopment exposes implementation error messages to callers.
const EnvironmentDevelopment = "development"

// Config holds dispatcher configuration.
type Config struct {
	// Environment controls error sanitization.
	Environment string
	// Identity validates bearer tokens.
	Identity identity.Config
	// TrustContextIdentity accepts ctx.userId and ctx.roles without a token.
	TrustContextIdentity bool
}

// NewDispatcherParams holds parameters for NewDispatcher.
type NewDispatcherParams struct {
	Engine   *engine.Engine
	Registry *registry.Registry
	Config   Config
}

// Dispatcher routes COMMS requests to engine methods.
type Dispatcher struct {
	engine   *engine.Engine
	registry *registry.Registry
	config   Config
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	return &Dispatcher{engine: params.Engine, registry: params.Registry, config: params.Config}
}

// Dispatch routes a request to the appropriate engine method and returns a response.
// Requests without ctx.requestId get a generated one; it is echoed on the response
// and carried by every log line for the request.
func (d *Dispatcher) Dispatch(ctx context.Context, req *EngineRequest) *EngineResponse {
	req = withRequestID(req)
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s request=%s", logPrefix, req.Method, req.ID, req.Ctx.RequestID))

	if req.Ctx.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Ctx.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	resp := d.route(ctx, req)
	resp.RequestID = req.Ctx.RequestID
	return resp
}

func (d *Dispatcher) route(ctx context.Context, req *EngineRequest) *EngineResponse {
	switch req.Method {
	case "invoke":
		return d.handleInvoke(ctx, req)
	case "actions":
		return d.handleActions(ctx, req)
	case "operations":
		return d.handleOperations(ctx, req)
	case "health":
		return d.handleHealth(ctx, req)
	default:
		return errorResponse(req.ID, http.StatusNotFound, CodeMethodNotFound, fmt.Sprintf("Unknown method: %s", req.Method), false)
	}
}

func (d *Dispatcher) handleInvoke(ctx context.Context, req *EngineRequest) *EngineResponse {
	var params InvokeParams
	if err := decodeParams(req.Params, &params); err != nil {
		return errorResponse(req.ID, http.StatusBadRequest, operation.CodeInvalidArgument, "Failed to parse invoke params", false)
	}
	if params.Operation == "" || params.Entity.ID == "" || params.Entity.Type == "" {
		return errorResponse(req.ID, http.StatusBadRequest, operation.CodeInvalidArgument, "operation, entity.id and entity.type are required", false)
	}

	caller, err := d.identify(req.Ctx)
	if err != nil {
		return d.errorToResponse(req, err)
	}

	started := time.Now()
	call, err := d.engine.Prepare(resolver.Request{
		Entity:    toEntity(params.Entity),
		Operation: params.Operation,
		Body:      params.Body,
		Query:     url.Values(params.Query),
		Identity:  caller,
		Locale:    locale(req.Ctx),
	})
	if err != nil {
		metrics.RecordInvocation("", err, time.Since(started))
		return d.errorToResponse(req, err)
	}

	result, err := d.engine.Run(ctx, call)
	metrics.RecordInvocation(call.Descriptor.Name(), err, time.Since(started))
	if err != nil {
		return d.errorToResponse(req, err)
	}
	return &EngineResponse{ID: req.ID, Ok: true, Status: http.StatusOK, Result: result}
}

func (d *Dispatcher) handleActions(_ context.Context, req *EngineRequest) *EngineResponse {
	var params ActionsParams
	if err := decodeParams(req.Params, &params); err != nil {
		return errorResponse(req.ID, http.StatusBadRequest, operation.CodeInvalidArgument, "Failed to parse actions params", false)
	}
	if params.Entity.ID == "" || params.Entity.Type == "" {
		return errorResponse(req.ID, http.StatusBadRequest, operation.CodeInvalidArgument, "entity.id and entity.type are required", false)
	}

	caller, err := d.identify(req.Ctx)
	if err != nil {
		return d.errorToResponse(req, err)
	}

	listed := d.engine.Actions(toEntity(params.Entity), params.Scenario, caller)
	out := make([]ActionInfo, 0, len(listed))
	for _, a := range listed {
		meta := a.Descriptor.Metadata()
		out = append(out, ActionInfo{
			Name:        a.Name,
			DisplayName: meta.DisplayName,
			Description: meta.Description,
			Icon:        meta.Icon,
			Scenarios:   meta.Scenarios,
			Forbidden:   a.Forbidden,
		})
	}
	return &EngineResponse{ID: req.ID, Ok: true, Status: http.StatusOK, Result: out}
}

func (d *Dispatcher) handleOperations(_ context.Context, req *EngineRequest) *EngineResponse {
	var params OperationsParams
	if err := decodeParams(req.Params, &params); err != nil {
		return errorResponse(req.ID, http.StatusBadRequest, operation.CodeInvalidArgument, "Failed to parse operations params", false)
	}
	return &EngineResponse{ID: req.ID, Ok: true, Status: http.StatusOK, Result: d.registry.Describe(params.Name)}
}

func (d *Dispatcher) handleHealth(ctx context.Context, req *EngineRequest) *EngineResponse {
	result := d.registry.Health(ctx)
	status := http.StatusOK
	if result.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	return &EngineResponse{ID: req.ID, Ok: true, Status: status, Result: result}
}

// identify derives the caller. A token must validate; without one, context
// identity is honoured only when trusted. No caller yields a nil identity.
func (d *Dispatcher) identify(ictx *InvocationContext) (operation.Identity, error) {
	if ictx == nil {
		return nil, nil
	}
	if ictx.Token != "" {
		user, err := identity.FromToken(ictx.Token, d.config.Identity)
		if err != nil {
			return nil, &authError{err: err}
		}
		return user, nil
	}
	if d.config.TrustContextIdentity && ictx.UserID != "" {
		return &operation.User{UserID: ictx.UserID, UserRoles: ictx.Roles}, nil
	}
	return nil, nil
}

type authError struct{ err error }

func (e *authError) Error() string { return e.err.Error() }
func (e *authError) Unwrap() error { return e.err }

// --- helpers ---

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func toEntity(ref EntityRef) *operation.Content {
	return &operation.Content{ContentID: ref.ID, Type: ref.Type, Ancestors: ref.Ancestors}
}

func locale(ictx *InvocationContext) language.Tag {
	if ictx == nil {
		return language.Und
	}
	return binder.ParseLocale(ictx.Locale)
}

// withRequestID returns req with a non-nil context carrying a request ID.
// The caller's request is not modified.
func withRequestID(req *EngineRequest) *EngineRequest {
	if req.Ctx != nil && req.Ctx.RequestID != "" {
		return req
	}
	out := *req
	ictx := InvocationContext{}
	if req.Ctx != nil {
		ictx = *req.Ctx
	}
	ictx.RequestID = uuid.NewString()
	out.Ctx = &ictx
	return &out
}

func errorResponse(id string, status int, code, message string, retryable bool) *EngineResponse {
	return &EngineResponse{
		ID:     id,
		Ok:     false,
		Status: status,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

// errorToResponse maps engine and implementation failures to the envelope.
// Invisible calls are reported as a bare 404 and logged at debug level only.
func (d *Dispatcher) errorToResponse(req *EngineRequest, err error) *EngineResponse {
	var opErr *operation.Error
	if errors.As(err, &opErr) {
		switch opErr.Code {
		case operation.CodeInvisible:
			slog.Debug(fmt.Sprintf("%s - invisible call id=%s request=%s: %s", logPrefix, req.ID, req.Ctx.RequestID, opErr.Message))
			return &EngineResponse{ID: req.ID, Ok: false, Status: http.StatusNotFound}
		case operation.CodeForbidden:
			return &EngineResponse{ID: req.ID, Status: http.StatusForbidden, Error: &ErrorDetail{Code: opErr.Code, Message: opErr.Message, Details: opErr.Details}}
		case operation.CodeOperationNotFound, operation.CodeAmbiguousMatch:
			return &EngineResponse{ID: req.ID, Status: http.StatusNotFound, Error: &ErrorDetail{Code: opErr.Code, Message: opErr.Message, Details: opErr.Details}}
		}
	}

	var authErr *authError
	switch {
	case errors.As(err, &authErr):
		slog.Info(fmt.Sprintf("%s - rejected token id=%s request=%s: %v", logPrefix, req.ID, req.Ctx.RequestID, err))
		return errorResponse(req.ID, http.StatusUnauthorized, CodeUnauthenticated, "Invalid token", false)
	case errors.Is(err, operation.ErrAccessDenied):
		slog.Info(fmt.Sprintf("%s - access denied id=%s request=%s: %v", logPrefix, req.ID, req.Ctx.RequestID, err))
		return errorResponse(req.ID, http.StatusForbidden, operation.CodeForbidden, "Access denied", false)
	case errors.Is(err, context.DeadlineExceeded):
		return errorResponse(req.ID, http.StatusGatewayTimeout, CodeTimeout, "Request timed out", true)
	}

	slog.Error(fmt.Sprintf("%s - method=%s id=%s request=%s failed: %+v", logPrefix, req.Method, req.ID, req.Ctx.RequestID, err))
	message := "Internal error"
	if d.config.Environment == EnvironmentDevelopment {
		message = err.Error()
	}
	return errorResponse(req.ID, http.StatusInternalServerError, operation.CodeInternal, message, true)
}
