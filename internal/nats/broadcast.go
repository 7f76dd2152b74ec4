package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/talentarc-ai/outreach-platform/internal/model"
	"github.com/talentarc-ai/outreach-platform/pkg/logger"
)

const (
	// SubjectPrefix is the prefix for all broadcast subjects.
	SubjectPrefix = "outreach.events"

	subjectMessage  = SubjectPrefix + ".message"
	subjectSequence = SubjectPrefix + ".sequence"
)

// Envelope wraps a broadcast event with its type for client-side routing.
type Envelope struct {
	Type model.EventType `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Broadcaster publishes message and sequence events over core NATS.
// Broadcasting is fire-and-forget: a publish failure is logged, never
// propagated, because realtime delivery is best-effort on top of the
// persisted state.
type Broadcaster struct {
	client *Client
	logger *logger.Logger
}

// NewBroadcaster creates a broadcaster on an established connection.
func NewBroadcaster(client *Client, log *logger.Logger) *Broadcaster {
	return &Broadcaster{client: client, logger: log}
}

// BroadcastMessage publishes a newly persisted message.
func (b *Broadcaster) BroadcastMessage(ctx context.Context, msg *model.Message) {
	b.publish(subjectMessage, model.EventTypeMessage, model.MessageEvent{
		SessionID: msg.SessionID,
		Message:   *msg,
	})
}

// BroadcastSequence publishes a sequence after any mutation.
func (b *Broadcaster) BroadcastSequence(ctx context.Context, seq *model.Sequence) {
	b.publish(subjectSequence, model.EventTypeSequenceUpdate, model.SequenceUpdateEvent{
		Sequence: *seq,
	})
}

func (b *Broadcaster) publish(subject string, eventType model.EventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Error("broadcast encode failed", zap.String("subject", subject), zap.Error(err))
		return
	}

	envelope, err := json.Marshal(Envelope{Type: eventType, Data: data})
	if err != nil {
		b.logger.Error("broadcast encode failed", zap.String("subject", subject), zap.Error(err))
		return
	}

	if err := b.client.Conn().Publish(subject, envelope); err != nil {
		b.logger.Error("broadcast publish failed", zap.String("subject", subject), zap.Error(err))
	}
}

// Subscribe delivers every broadcast envelope to handler until the
// returned subscription is unsubscribed.
func (b *Broadcaster) Subscribe(handler func(Envelope)) (*nats.Subscription, error) {
	sub, err := b.client.Conn().Subscribe(SubjectPrefix+".>", func(m *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			b.logger.Warn("broadcast decode failed", zap.Error(err))
			return
		}
		handler(env)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to broadcast events: %w", err)
	}
	return sub, nil
}
