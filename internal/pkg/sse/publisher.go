package sse

import (
	"context"

	"github.com/cmlabs-hris/attendance-kiosk/internal/domain/workflow"
)

// WorkflowPublisher publishes workflow events on the stream of the device they happened on.
type WorkflowPublisher struct {
	hub *Hub
}

func NewWorkflowPublisher(hub *Hub) *WorkflowPublisher {
	return &WorkflowPublisher{hub: hub}
}

// Publish implements workflow.EventPublisher.
func (p *WorkflowPublisher) Publish(ctx context.Context, event workflow.Event) {
	p.hub.Publish(event.DeviceID, Event{
		DeviceID: event.DeviceID,
		Event:    string(event.Type),
		Data:     event,
	})
}
