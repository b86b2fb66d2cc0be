package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
	"spec-registry-service/internal/core/ports/output"
	"spec-registry-service/internal/core/update"
)

// Outcome is the terminal state of one delivery.
type Outcome string

const (
	// OutcomeCompleted: artifact stored and pointer written. The message is acked.
	OutcomeCompleted Outcome = "completed"
	// OutcomeRetry: a transient step failed. The message is released for redelivery.
	OutcomeRetry Outcome = "retry"
	// OutcomeFailed: retrying cannot help (record deleted, bad message,
	// corrupt data, no template). The message is acked.
	OutcomeFailed Outcome = "failed"
)

// PipelineObserver records pipeline outcomes. A nil observer is allowed.
type PipelineObserver interface {
	ObserveRender(outcome string, elapsed time.Duration)
}

// ChangeConsumer drains the change queue and re-renders the specifications
// it names. Events are signals only: the record is always re-read.
type ChangeConsumer struct {
	queue    ports.ChangeQueue
	store    RecordStore
	blobs    ports.BlobStore
	renderer *RenderService
	observer PipelineObserver

	workers   int
	batchSize int
	idle      time.Duration
	now       func() time.Time
}

type ConsumerOption func(*ChangeConsumer)

func WithWorkers(n int) ConsumerOption {
	return func(c *ChangeConsumer) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithBatchSize(n int) ConsumerOption {
	return func(c *ChangeConsumer) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

func WithObserver(o PipelineObserver) ConsumerOption {
	return func(c *ChangeConsumer) { c.observer = o }
}

func WithConsumerClock(now func() time.Time) ConsumerOption {
	return func(c *ChangeConsumer) { c.now = now }
}

func NewChangeConsumer(queue ports.ChangeQueue, store RecordStore, blobs ports.BlobStore, renderer *RenderService, opts ...ConsumerOption) *ChangeConsumer {
	c := &ChangeConsumer{
		queue:     queue,
		store:     store,
		blobs:     blobs,
		renderer:  renderer,
		workers:   4,
		batchSize: 10,
		idle:      time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run polls until ctx is cancelled.
func (c *ChangeConsumer) Run(ctx context.Context) error {
	log.WithFields(log.Fields{"workers": c.workers, "batch_size": c.batchSize}).Info("change consumer started")
	for {
		if ctx.Err() != nil {
			log.Info("change consumer stopped")
			return nil
		}
		n, err := c.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.WithError(err).Warn("receive failed")
		}
		if n == 0 || err != nil {
			select {
			case <-ctx.Done():
			case <-time.After(c.idle):
			}
		}
	}
}

// Poll receives one batch and settles every message in it. It returns the
// number of messages handled.
func (c *ChangeConsumer) Poll(ctx context.Context) (int, error) {
	msgs, err := c.queue.Receive(ctx, c.batchSize)
	if err != nil {
		return 0, fmt.Errorf("receive changes: %w", err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, msg := range msgs {
		msg := msg
		g.Go(func() error {
			c.settle(gctx, msg)
			return nil
		})
	}
	return len(msgs), g.Wait()
}

func (c *ChangeConsumer) settle(ctx context.Context, msg ports.Message) {
	start := c.now()
	outcome, err := c.Process(ctx, msg)

	entry := log.WithFields(log.Fields{
		"message_id":    msg.ID,
		"receive_count": msg.ReceiveCount,
		"outcome":       outcome,
	})

	// Settle even when ctx was cancelled mid-flight.
	settleCtx := context.WithoutCancel(ctx)
	switch outcome {
	case OutcomeRetry:
		entry.WithError(err).Warn("render step failed, releasing for redelivery")
		if rerr := c.queue.Release(settleCtx, msg); rerr != nil {
			entry.WithError(rerr).Warn("release failed; message reappears after visibility timeout")
		}
	case OutcomeFailed:
		entry.WithError(err).Error("dropping change event")
		if aerr := c.queue.Ack(settleCtx, msg); aerr != nil {
			entry.WithError(aerr).Warn("ack failed")
		}
	default:
		entry.Info("render completed")
		if aerr := c.queue.Ack(settleCtx, msg); aerr != nil {
			entry.WithError(aerr).Warn("ack failed; render will repeat")
		}
	}

	if c.observer != nil {
		c.observer.ObserveRender(string(outcome), c.now().Sub(start))
	}
}

// Process runs the pipeline for one delivery.
func (c *ChangeConsumer) Process(ctx context.Context, msg ports.Message) (Outcome, error) {
	ev, err := domain.ParseChangeEvent(msg.Body, msg.Attributes)
	if err != nil {
		return OutcomeFailed, err
	}
	outcome, _, err := c.Handle(ctx, ev)
	return outcome, err
}

// Handle re-reads the record named by ev, renders it, uploads the artifact
// under a fresh key and repoints the record. It returns the new artifact key
// on success.
func (c *ChangeConsumer) Handle(ctx context.Context, ev domain.ChangeEvent) (Outcome, string, error) {
	entry := log.WithFields(log.Fields{
		"tenant_id":        ev.TenantID,
		"specification_id": ev.SpecificationID,
	})

	spec, err := c.store.GetSpecification(ctx, ev.Key())
	if err != nil {
		var de *codec.DecodeError
		if errors.As(err, &de) {
			entry.WithField("attribute", de.Path).WithError(err).Error("stored record is not decodable")
		}
		return classify(err), "", err
	}

	body, err := c.renderer.Render(ctx, spec)
	if err != nil {
		return classify(err), "", err
	}

	key := domain.NewArtifactKey(spec.TenantID, spec.SpecificationID, c.renderer.Extension())
	if err := c.blobs.Put(ctx, key, body, c.renderer.ContentType()); err != nil {
		return OutcomeRetry, "", fmt.Errorf("upload artifact: %w", err)
	}

	pointer := domain.ArtifactPointer{ObjectKey: key, UpdatedAt: domain.FormatTimestamp(c.now())}
	if err := c.store.Update(ctx, ev.Key(), update.SetArtifact(pointer)); err != nil {
		// The uploaded object is left behind; nothing references it.
		return OutcomeRetry, "", fmt.Errorf("write artifact pointer: %w", err)
	}

	entry.WithField("object_key", key).Debug("artifact pointer updated")
	return OutcomeCompleted, key, nil
}

func classify(err error) Outcome {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, codec.ErrDecode),
		errors.Is(err, domain.ErrRenderFailed):
		return OutcomeFailed
	default:
		return OutcomeRetry
	}
}
