package watch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"webpconv/convert"
	"webpconv/logger"
)

const DefaultSettle = time.Second

// Loop feeds events to a Reactor on a goroutine pool and reports a summary
// once a burst of events has settled.
type Loop struct {
	Reactor *Reactor
	Console *logger.Console
	Workers int
	Settle  time.Duration
	Quality int

	stats    convert.Stats
	inflight atomic.Int64
	reports  int
}

// Run blocks until ctx is cancelled. In-flight reactions are waited for.
func (l *Loop) Run(ctx context.Context, events <-chan FileEvent) error {
	if l.Settle <= 0 {
		l.Settle = DefaultSettle
	}

	pool, err := ants.NewPool(max(l.Workers, 1))
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	settled := time.NewTimer(l.Settle)
	settled.Stop()
	defer settled.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			l.report()
			return nil
		case ev := <-events:
			wg.Add(1)
			l.inflight.Add(1)
			err := pool.Submit(func() {
				defer wg.Done()
				defer l.inflight.Add(-1)
				for _, res := range l.Reactor.React(ctx, ev) {
					if res.Action == convert.ActionGenerate {
						l.stats.Record(res)
					}
				}
			})
			if err != nil {
				wg.Done()
				l.inflight.Add(-1)
				l.Console.Error("dropping %s event for %s: %v", ev.Kind, ev.Path, err)
			}
			settled.Reset(l.Settle)
		case <-settled.C:
			if l.inflight.Load() > 0 {
				settled.Reset(l.Settle)
				continue
			}
			l.report()
		}
	}
}

// Summary returns the stats of the burst in progress.
func (l *Loop) Summary() convert.Summary {
	return l.stats.Snapshot()
}

// Reports is the number of completion lines written so far.
func (l *Loop) Reports() int {
	return l.reports
}

func (l *Loop) report() {
	s := l.stats.Reset()
	if s.Acted() == 0 && s.Missing == 0 {
		return
	}
	l.reports++
	l.Console.Logger.Info().
		Int("succeeded", s.Succeeded).
		Int("failed", s.Failed).
		Int("missing", s.Missing).
		Str("saved", logger.ByteSize(max(s.InputBytes-s.OutputBytes, 0))).
		Msgf("%s is completed at %s [total is %d quality is %d]",
			convert.ActionGenerate, time.Now().Format("2006-01-02 15:04:05"), s.Succeeded, l.Quality)
}
