package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/operation-engine/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// GlobalChangeSubject overrides the global change event subject (e.g. from ENGINE_CHANGE_EVENT_SUBJECT).
	GlobalChangeSubject string
	// Service is stamped on events that do not carry one.
	Service string
}

// CommsPublisher publishes operation change events to COMMS subjects.
type CommsPublisher struct {
	nc                  *comms.Conn
	globalChangeSubject string
	service             string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	p := &CommsPublisher{nc: nc, globalChangeSubject: commsutil.SubjectChangeEvent}
	if opts != nil {
		if opts.GlobalChangeSubject != "" {
			p.globalChangeSubject = opts.GlobalChangeSubject
		}
		p.service = opts.Service
	}
	return p
}

// PublishChanged publishes an OperationsChangedEvent to both the per-action
// and global change event subjects.
func (p *CommsPublisher) PublishChanged(_ context.Context, event *OperationsChangedEvent) error {
	if event.Service == "" {
		event.Service = p.service
	}
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	actionSubject := commsutil.BuildChangeSubject(event.Action)
	if err := p.nc.Publish(actionSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, actionSubject, err))
		return err
	}

	if err := p.nc.Publish(p.globalChangeSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.globalChangeSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published %s event (%d operations)", commsPublisherLogPrefix, event.Action, event.Count))
	return nil
}
