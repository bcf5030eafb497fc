// Package analytics provides a fire-and-forget NATS publisher for
// product events such as views, searches and reactions.
package analytics

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectAuthRegistered     = "analytics.auth.registered"
	SubjectAuthLoggedIn       = "analytics.auth.logged_in"
	SubjectAuthAccountDeleted = "analytics.auth.account_deleted"
	SubjectAnimeViewed        = "analytics.catalog.anime_viewed"
	SubjectSearchPerformed    = "analytics.search.performed"
	SubjectVoteToggled        = "analytics.reactions.vote_toggled"
	SubjectCommentLiked       = "analytics.reactions.comment_liked"
	SubjectCommentPosted      = "analytics.comments.posted"
)

// Event is the envelope sent to all analytics.* subjects.
type Event struct {
	EventID    string         `json:"event_id"`
	EventName  string         `json:"event_name"`
	UserID     int64          `json:"user_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Sink is the subset of nats.Conn used for publishing.
type Sink interface {
	Publish(subject string, data []byte) error
}

// Publisher is safe to use as a nil pointer; every call is then a no-op.
type Publisher struct {
	sink Sink
	log  *zap.Logger
	now  func() time.Time
}

// New returns a publisher over sink. Pass a nil sink to get a no-op stub.
func New(sink Sink, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{sink: sink, log: log, now: time.Now}
}

// FromConn wraps a NATS connection; nil yields a no-op publisher.
func FromConn(nc *nats.Conn, log *zap.Logger) *Publisher {
	if nc == nil {
		return New(nil, log)
	}
	return New(nc, log)
}

// Publish never surfaces failures to the caller; they are logged as warnings.
func (p *Publisher) Publish(subject, eventName string, userID int64, props map[string]any) {
	if p == nil || p.sink == nil {
		return
	}
	ev := Event{
		EventID:    uuid.NewString(),
		EventName:  eventName,
		UserID:     userID,
		OccurredAt: p.now().UTC(),
		Properties: props,
	}
	data, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("analytics: marshal failed", zap.String("event", eventName), zap.Error(err))
		return
	}
	if err := p.sink.Publish(subject, data); err != nil {
		p.log.Warn("analytics: publish failed", zap.String("subject", subject), zap.Error(err))
	}
}
