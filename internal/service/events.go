package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Domain event names published for downstream reporting consumers.
const (
	EventMarksRecorded     = "marks.recorded"
	EventExamStatusChanged = "status.changed"
)

// EventPublisher fans domain events out to the configured brokers.
// Publishing is best-effort: a broker failure is logged, never surfaced
// to the caller of the write that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{})
}

type examEventPublisher struct {
	redis       *redis.Client
	nats        *nats.Conn
	subjectBase string
	logger      zerolog.Logger
	nodeID      string
}

type eventEnvelope struct {
	Source  string      `json:"source"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// NewExamEventPublisher constructs a publisher. Both clients are
// optional; a publisher with neither configured is a no-op.
func NewExamEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, subjectBase string, logger zerolog.Logger) EventPublisher {
	if subjectBase == "" {
		subjectBase = "exams"
	}

	return &examEventPublisher{
		redis:       redisClient,
		nats:        natsConn,
		subjectBase: subjectBase,
		logger:      logger.With().Str("component", "exam_event_publisher").Logger(),
		nodeID:      uuid.NewString(),
	}
}

func (p *examEventPublisher) Publish(ctx context.Context, event string, payload interface{}) {
	envelope := eventEnvelope{
		Source:  p.nodeID,
		Event:   event,
		Payload: payload,
		SentAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		p.logger.Warn().Err(err).Str("event", event).Msg("failed to encode event payload")
		return
	}

	if p.redis != nil {
		channel := p.subjectBase + ":" + event
		if err := p.redis.Publish(ctx, channel, data).Err(); err != nil {
			p.logger.Warn().Err(err).Str("event", event).Msg("failed to publish event to redis")
		}
	}

	if p.nats != nil {
		subject := strings.ReplaceAll(p.subjectBase, ":", ".") + "." + event
		if err := p.nats.Publish(subject, data); err != nil {
			p.logger.Warn().Err(err).Str("event", event).Msg("failed to publish event to nats")
		}
	}
}
