package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hirelane/portal/internal/core/domain"
	"github.com/hirelane/portal/internal/core/ports"
)

const (
	sessionEventsCollection = "session_events"
	defaultListLimit        = 50
	maxListLimit            = 500
)

// SessionEventRepository implements ports.SessionEventRepository using MongoDB.
type SessionEventRepository struct {
	coll *mongo.Collection
}

// NewSessionEventRepository creates a new SessionEventRepository.
func NewSessionEventRepository(db *mongo.Database) ports.SessionEventRepository {
	return &SessionEventRepository{coll: db.Collection(sessionEventsCollection)}
}

type mongoSessionEvent struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	TabID      string             `bson:"tab_id"`
	Kind       string             `bson:"kind"`
	From       string             `bson:"from"`
	To         string             `bson:"to"`
	UserID     string             `bson:"user_id,omitempty"`
	Username   string             `bson:"username,omitempty"`
	Role       string             `bson:"role,omitempty"`
	At         time.Time          `bson:"at"`
	RecordedAt time.Time          `bson:"recorded_at"`
}

// EnsureIndexes creates the index backing ListRecent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(sessionEventsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create session_events index: %w", err)
	}
	return nil
}

// Insert persists a session transition to the audit collection.
func (r *SessionEventRepository) Insert(ctx context.Context, event *domain.SessionEvent) error {
	if _, err := r.coll.InsertOne(ctx, toDocument(event, time.Now().UTC())); err != nil {
		return fmt.Errorf("insert session event: %w", err)
	}
	return nil
}

// ListRecent returns the newest events first.
func (r *SessionEventRepository) ListRecent(ctx context.Context, limit int) ([]domain.SessionEvent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find session events: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoSessionEvent
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode session events: %w", err)
	}

	events := make([]domain.SessionEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, fromDocument(d))
	}
	return events, nil
}

func toDocument(ev *domain.SessionEvent, recordedAt time.Time) mongoSessionEvent {
	return mongoSessionEvent{
		TabID:      ev.TabID,
		Kind:       string(ev.Kind),
		From:       string(ev.From),
		To:         string(ev.To),
		UserID:     string(ev.UserID),
		Username:   ev.Username,
		Role:       string(ev.Role),
		At:         ev.At.UTC(),
		RecordedAt: recordedAt,
	}
}

func fromDocument(d mongoSessionEvent) domain.SessionEvent {
	return domain.SessionEvent{
		TabID:    d.TabID,
		Kind:     domain.SessionEventKind(d.Kind),
		From:     domain.SessionState(d.From),
		To:       domain.SessionState(d.To),
		UserID:   domain.UserID(d.UserID),
		Username: d.Username,
		Role:     domain.Role(d.Role),
		At:       d.At.UTC(),
	}
}
