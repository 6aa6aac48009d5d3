package projection

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"fundledger/internal/domain"
)

// Sink stores projected state. Apply must record the event and advance the
// cursor in one step.
type Sink interface {
	Cursor(ctx context.Context) (uint64, error)
	Apply(ctx context.Context, event domain.Event) error
}

// Projector copies events from the persisted stream into a Sink.
type Projector struct {
	Source   domain.EventReader
	Sink     Sink
	Logger   zerolog.Logger
	Interval time.Duration
	Batch    int
	// OnApplied, when set, is called after each event reaches the sink.
	OnApplied func(seq uint64)
}

// Step projects one batch and returns how many events were applied.
func (p *Projector) Step(ctx context.Context) (int, error) {
	cursor, err := p.Sink.Cursor(ctx)
	if err != nil {
		return 0, err
	}
	events, err := p.Source.EventsSince(ctx, cursor, p.batchSize())
	if err != nil {
		return 0, err
	}
	for i, e := range events {
		if err := p.Sink.Apply(ctx, e); err != nil {
			return i, err
		}
		if p.OnApplied != nil {
			p.OnApplied(e.Seq)
		}
	}
	return len(events), nil
}

// Run polls until ctx is done. A full batch is followed immediately by the
// next one; otherwise the projector sleeps for Interval.
func (p *Projector) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	p.Logger.Info().Msg("projector: started")
	for {
		n, err := p.Step(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return err
		case err != nil:
			p.Logger.Error().Err(err).Msg("projector: step failed")
		case n > 0:
			p.Logger.Debug().Int("events", n).Msg("projector: applied batch")
			if n >= p.batchSize() {
				continue
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (p *Projector) batchSize() int {
	if p.Batch <= 0 {
		return 100
	}
	return p.Batch
}
