// Package consumer reads sabzgam events back off Kafka and routes each one to
// the handlers registered for its event type.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/sabzgam/internal/events"
)

// Reader is the subset of *kafka.Reader the processor drives.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Record is one decoded event together with where it was read from.
type Record struct {
	Topic         string
	Partition     int
	Offset        int64
	Time          time.Time
	SchemaSubject string
	SchemaID      int
	Event         events.Event
	Payload       json.RawMessage
}

// Handler consumes decoded records.
type Handler interface {
	Handle(context.Context, Record) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, Record) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, rec Record) error { return f(ctx, rec) }

// Router maps event types to the handlers interested in them.
type Router struct {
	routes map[string][]Handler
}

// NewRouter returns an empty Router.
func NewRouter() *Router {
	return &Router{routes: make(map[string][]Handler)}
}

// Route registers h for every listed event type. Handlers run in registration order.
func (r *Router) Route(h Handler, eventTypes ...string) *Router {
	for _, t := range eventTypes {
		r.routes[t] = append(r.routes[t], h)
	}
	return r
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Processor fetches records, decodes them into events and routes them.
//
// A record is committed once every routed handler succeeded. Records that
// cannot be decoded, or that no handler is routed for, are committed right
// away so they never block the partition. A failed handler leaves the record
// uncommitted.
type Processor struct {
	reader Reader
	router *Router
	logger *log.Logger
}

// NewProcessor constructs a Processor reading from reader.
func NewProcessor(reader Reader, router *Router, opts ...Option) *Processor {
	p := &Processor{
		reader: reader,
		router: router,
		logger: log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes records until ctx is cancelled or the reader reports cancellation.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if err != nil {
			p.logger.Printf("fetch: %v", err)
			continue
		}

		eventType, result := p.process(ctx, msg)
		recordOutcome(msg, eventType, result)
	}
}

func (p *Processor) process(ctx context.Context, msg kafka.Message) (string, outcome) {
	rec, err := decodeRecord(msg)
	if err != nil {
		p.logger.Printf("dropping %s/%d@%d: %v", msg.Topic, msg.Partition, msg.Offset, err)
		return headerValue(msg, events.HeaderEventType), p.commit(ctx, msg, outcomeMalformed)
	}

	eventType := rec.Event.Type()
	handlers := p.router.routes[eventType]
	if len(handlers) == 0 {
		return eventType, p.commit(ctx, msg, outcomeUnrouted)
	}
	for _, h := range handlers {
		if err := h.Handle(ctx, rec); err != nil {
			p.logger.Printf("%s for tenant %s at %s/%d@%d: %v", eventType, rec.Event.Tenant(), msg.Topic, msg.Partition, msg.Offset, err)
			return eventType, outcomeFailed
		}
	}
	return eventType, p.commit(ctx, msg, outcomeHandled)
}

func (p *Processor) commit(ctx context.Context, msg kafka.Message, result outcome) outcome {
	if err := p.reader.CommitMessages(ctx, msg); err != nil {
		p.logger.Printf("commit %s/%d@%d: %v", msg.Topic, msg.Partition, msg.Offset, err)
		return outcomeCommitFailed
	}
	return result
}

func decodeRecord(msg kafka.Message) (Record, error) {
	eventType := headerValue(msg, events.HeaderEventType)
	if eventType == "" {
		return Record{}, errors.New("missing event_type header")
	}
	schemaID, payload, err := events.Unframe(msg.Value)
	if err != nil {
		return Record{}, err
	}
	ev, err := events.Decode(eventType, payload)
	if err != nil {
		return Record{}, err
	}
	if tenant := headerValue(msg, events.HeaderTenantID); tenant != "" && tenant != ev.Tenant() {
		return Record{}, fmt.Errorf("tenant header %q does not match payload tenant %q", tenant, ev.Tenant())
	}

	return Record{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Time:          msg.Time,
		SchemaSubject: headerValue(msg, events.HeaderSchemaSubject),
		SchemaID:      schemaID,
		Event:         ev,
		Payload:       append(json.RawMessage(nil), payload...),
	}, nil
}

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
