// Package events publishes analysis lifecycle events to Kafka. Delivery is
// best-effort; the orchestrator logs and ignores publish failures.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	domain "github.com/sitewise/cog/internal/domain/analysis"
)

// Publisher writes analysis.completed events keyed by userId so one user's
// events stay ordered within a partition.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// completedEvent is the wire shape; the full locations list stays out of the
// event on purpose.
type completedEvent struct {
	Event           string                 `json:"event"`
	AnalysisID      string                 `json:"analysisId"`
	UserID          string                 `json:"userId"`
	SourceFileKey   string                 `json:"sourceFileKey"`
	CenterOfGravity domain.CenterOfGravity `json:"centerOfGravity"`
	LocationCount   int                    `json:"locationCount"`
	CreatedAt       time.Time              `json:"createdAt"`
}

func (p *Publisher) AnalysisCompleted(ctx context.Context, a *domain.AnalysisResult) error {
	payload, err := json.Marshal(completedEvent{
		Event:           "analysis.completed",
		AnalysisID:      string(a.ID),
		UserID:          a.UserID,
		SourceFileKey:   a.SourceFileKey,
		CenterOfGravity: a.Results.CenterOfGravity,
		LocationCount:   a.LocationCount,
		CreatedAt:       a.CreatedAt,
	})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(a.UserID),
		Value: payload,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
