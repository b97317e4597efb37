package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/secrets-gateway/pkg/model"
)

// JetStream is the publishing subset of nats.JetStreamContext.
type JetStream interface {
	PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher emits fetch events onto a JetStream subject.
type Publisher struct {
	js      JetStream
	subject string
	service string
	logger  *zap.Logger
}

// New creates a Publisher bound to the JetStream context of nc.
func New(nc *nats.Conn, subject, service string, logger *zap.Logger) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	return NewWithJetStream(js, subject, service, logger), nil
}

// NewWithJetStream creates a Publisher over an existing JetStream implementation.
func NewWithJetStream(js JetStream, subject, service string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		js:      js,
		subject: subject,
		service: service,
		logger:  logger,
	}
}

// RecordFetch publishes ev with event metadata in the headers.
func (p *Publisher) RecordFetch(ctx context.Context, ev model.FetchEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("publisher.marshal_failed",
			zap.String("subject", p.subject),
			zap.Error(err))
		return err
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header: nats.Header{
			"event_id":     []string{ev.ID.String()},
			"event_type":   []string{"keeper.fetch." + ev.Outcome},
			"service":      []string{p.service},
			"backend":      []string{ev.Backend},
			"content_type": []string{"application/json"},
		},
	}

	if _, err := p.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("subject", p.subject),
			zap.String("outcome", ev.Outcome),
			zap.Error(err))
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}

	p.logger.Debug("publisher.publish_success",
		zap.String("subject", p.subject),
		zap.String("outcome", ev.Outcome))
	return nil
}
