package sinks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JakeFAU/primerblast-validator/internal/primerblast"
	"github.com/JakeFAU/primerblast-validator/internal/progress"
)

// RunNotice is the message published for run milestones.
type RunNotice struct {
	RunID string    `json:"run_id"`
	Kind  string    `json:"kind"`
	Stage string    `json:"stage"`
	Done  int       `json:"done"`
	Total int       `json:"total"`
	Note  string    `json:"note,omitempty"`
	TS    time.Time `json:"ts"`
}

// PublisherSink forwards run-level milestones (start, checkpoint, done) to a
// Publisher. Per-record events are not published.
type PublisherSink struct {
	publisher primerblast.Publisher
	topic     string
}

// NewPublisherSink builds a PublisherSink for topic.
func NewPublisherSink(publisher primerblast.Publisher, topic string) (*PublisherSink, error) {
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	return &PublisherSink{publisher: publisher, topic: topic}, nil
}

// Consume publishes one notice per run milestone in the batch.
func (s *PublisherSink) Consume(ctx context.Context, batch []progress.Event) error {
	var errs []error
	for _, evt := range batch {
		if evt.Stage == progress.StageJobDone {
			continue
		}
		notice := RunNotice{
			RunID: evt.RunUUID().String(),
			Kind:  string(evt.Kind),
			Stage: string(evt.Stage),
			Done:  evt.Done,
			Total: evt.Total,
			Note:  evt.Note,
			TS:    evt.TS,
		}
		if _, err := s.publisher.Publish(ctx, s.topic, notice); err != nil {
			errs = append(errs, fmt.Errorf("publish %s notice: %w", evt.Stage, err))
		}
	}
	return errors.Join(errs...)
}

// Close implements the Sink interface; it performs no action.
func (s *PublisherSink) Close(context.Context) error {
	return nil
}
