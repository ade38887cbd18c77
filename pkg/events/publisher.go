package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/odpfinder/internal/odp/domain"
)

const DefaultSubject = "odp.events"

// Publisher writes search events to a NATS subject.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// NewPublisher builds a Publisher. A nil conn makes Publish a no-op.
func NewPublisher(conn *nats.Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}
}

// Publish satisfies domain.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, event domain.SearchEvent) error {
	if p == nil || p.conn == nil {
		return nil
	}
	msg, err := p.Message(ctx, event)
	if err != nil {
		return err
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Message encodes event with its routing headers.
func (p *Publisher) Message(ctx context.Context, event domain.SearchEvent) (*nats.Msg, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	msg := nats.NewMsg(p.subject + "." + string(event.Type))
	msg.Data = payload
	msg.Header.Set("x-event-id", event.ID.String())
	msg.Header.Set("x-event-type", string(event.Type))
	if id := traceIDFromContext(ctx); id != "" {
		msg.Header.Set("x-trace-id", id)
	}
	return msg, nil
}

func traceIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
