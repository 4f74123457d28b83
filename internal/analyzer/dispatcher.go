package analyzer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"callsight/internal/logger"
	"callsight/internal/types"
)

// AnalysisStore is the slice of the persistence gateway the dispatcher
// needs.
type AnalysisStore interface {
	UpsertAnalysis(ctx context.Context, a types.Analysis) error
}

// Options tunes a dispatch run. Zero values take the defaults below.
type Options struct {
	// Concurrency caps simultaneously in-flight classifier calls.
	Concurrency int
	// MaxAttempts is the total tries per transcript, first attempt included.
	MaxAttempts int
	// RetryInterval seeds the exponential backoff between attempts.
	RetryInterval time.Duration
	// WaveDelay is the pause between concurrency waves. Rate-limit
	// politeness only, not a correctness requirement.
	WaveDelay time.Duration
	// ExcerptChars bounds the conversation tail placed in the prompt.
	ExcerptChars int
	// Progress, when set, is invoked after each persisted analysis with
	// (completedCount, totalCount). Completion order, not submission order.
	// Keep it fast; it runs on the worker path.
	Progress func(completed, total int)
}

const (
	defaultConcurrency   = 5
	defaultMaxAttempts   = 3
	defaultRetryInterval = 2 * time.Second
	defaultWaveDelay     = 200 * time.Millisecond
	defaultExcerptChars  = 1200
)

// Dispatcher produces and persists one analysis per transcript under a
// concurrency cap with bounded retries. Callers must pass only transcripts
// that lack a stored analysis; the dispatcher does not re-check, and a
// redundant write is harmless because the upsert is idempotent.
type Dispatcher struct {
	store      AnalysisStore
	classifier Classifier
	opts       Options
	log        *logrus.Entry
}

func NewDispatcher(store AnalysisStore, classifier Classifier, opts Options) *Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	if opts.WaveDelay < 0 {
		opts.WaveDelay = defaultWaveDelay
	}
	if opts.ExcerptChars <= 0 {
		opts.ExcerptChars = defaultExcerptChars
	}
	return &Dispatcher{
		store:      store,
		classifier: classifier,
		opts:       opts,
		log:        logger.NewComponent("dispatcher"),
	}
}

// Run processes the batch in waves of at most Concurrency transcripts,
// waiting for each wave to drain before starting the next. A permanently
// failing transcript is recorded and never halts the batch. Already
// persisted analyses survive process death, so an interrupted run resumes
// safely.
func (d *Dispatcher) Run(ctx context.Context, transcripts []types.Transcript) types.RunStats {
	stats := types.NewRunStats()
	total := len(transcripts)
	if total == 0 {
		return stats
	}

	d.log.WithFields(logrus.Fields{
		"total":       total,
		"concurrency": d.opts.Concurrency,
		"model":       d.classifier.Model(),
	}).Info("starting analysis batch")

	var (
		mu        sync.Mutex
		completed atomic.Int64
	)

	for offset := 0; offset < total; offset += d.opts.Concurrency {
		if ctx.Err() != nil {
			break
		}

		end := offset + d.opts.Concurrency
		if end > total {
			end = total
		}
		wave := transcripts[offset:end]

		var wg sync.WaitGroup
		for _, t := range wave {
			wg.Add(1)
			go func(t types.Transcript) {
				defer wg.Done()
				err := d.analyzeOne(ctx, t)

				mu.Lock()
				if err != nil {
					stats.AddError(t.VendorCallKey, "analyze", err)
				} else {
					stats.Analyzed++
				}
				mu.Unlock()

				if err == nil && d.opts.Progress != nil {
					d.opts.Progress(int(completed.Add(1)), total)
				}
			}(t)
		}
		wg.Wait()

		if end < total && d.opts.WaveDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d.opts.WaveDelay):
			}
		}
	}

	d.log.WithField("summary", stats.Summary()).Info("analysis batch finished")
	return stats
}

// analyzeOne classifies and persists a single transcript with bounded
// retries and exponential backoff between attempts.
func (d *Dispatcher) analyzeOne(ctx context.Context, t types.Transcript) error {
	in := Input{
		VendorCallKey: t.VendorCallKey,
		AgentName:     deref(t.AgentName),
		Department:    deref(t.Department),
		Disposition:   deref(t.Disposition),
		Excerpt:       TailExcerpt(t.ConversationText(), d.opts.ExcerptChars),
	}

	op := func() error {
		a, err := d.classifier.Classify(ctx, in)
		if err != nil {
			if errors.Is(err, ErrPermanent) {
				return backoff.Permanent(err)
			}
			return err
		}
		if err := d.store.UpsertAnalysis(ctx, a); err != nil {
			return err
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.opts.RetryInterval
	b.RandomizationFactor = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(d.opts.MaxAttempts-1)), ctx)

	if err := backoff.Retry(op, policy); err != nil {
		d.log.WithField("vendor_call_key", t.VendorCallKey).WithError(err).Warn("transcript failed permanently")
		return err
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
