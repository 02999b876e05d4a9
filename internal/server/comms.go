package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/operation-engine/pkg/commsutil"
	"github.com/morezero/operation-engine/pkg/dispatcher"
)

// Subscribe serves dispatcher requests on subject. Each request runs under
// timeout, shortened by the caller's ctx.timeoutMs when that is smaller.
func Subscribe(ctx context.Context, nc *comms.Conn, subject string, disp *dispatcher.Dispatcher, timeout time.Duration) (*comms.Subscription, error) {
	sub, err := nc.Subscribe(subject, func(msg *comms.Msg) {
		var req dispatcher.EngineRequest
		if err := commsutil.DecodePayload(msg.Data, &req); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
			respond(msg, &dispatcher.EngineResponse{
				Ok:     false,
				Status: http.StatusBadRequest,
				Error: &dispatcher.ErrorDetail{
					Code:    "INVALID_REQUEST",
					Message: "Failed to decode request",
				},
			})
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		respond(msg, disp.Dispatch(reqCtx, &req))
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, subject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, subject))
	return sub, nil
}

func respond(msg *comms.Msg, resp *dispatcher.EngineResponse) {
	data, err := commsutil.EncodePayload(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response: %v", logPrefix, err))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to respond: %v", logPrefix, err))
	}
}
