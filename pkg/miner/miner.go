package miner

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"
	"github.com/screa/salty/pkg/types"
	"github.com/screa/salty/pkg/worker"
	"golang.org/x/sync/errgroup"
)

// SeedStride separates the base seeds of consecutive workers.
const SeedStride = 9973

// Options controls the CPU worker pool.
type Options struct {
	Workers     int
	BatchSize   uint32 // candidates per batch; defaults to worksize/workers
	Seed        uint64
	StopOnFound bool
	LogInterval time.Duration
}

// Miner runs one worker.State per goroutine and collects their results.
type Miner struct {
	cfg      *types.MinerConfig
	opts     Options
	reporter types.Reporter

	attempts atomic.Uint64
	workers  []*worker.State

	mu    sync.Mutex
	found []types.FoundResult
}

// New creates a CPU miner for cfg.
func New(cfg *types.MinerConfig, opts Options, reporter types.Reporter) *Miner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = max(cfg.Worksize/uint32(opts.Workers), 1)
	}

	m := &Miner{
		cfg:      cfg,
		opts:     opts,
		reporter: reporter,
		workers:  make([]*worker.State, opts.Workers),
		found:    make([]types.FoundResult, 0),
	}
	for i := range m.workers {
		m.workers[i] = worker.NewState(cfg, workerSeed(opts.Seed, i), uint32(i))
	}
	return m
}

func workerSeed(base uint64, i int) uint64 {
	return base + uint64(i)*SeedStride
}

// Mine runs every worker until ctx is cancelled or, with StopOnFound, until
// a batch yields a result. In-flight batches always complete. It returns
// everything found.
func (m *Miner) Mine(ctx context.Context) ([]types.FoundResult, error) {
	start := time.Now()
	log.Infof("Mining with %d workers, batch size %d, seed %d",
		m.opts.Workers, m.opts.BatchSize, m.opts.Seed)

	done := make(chan struct{})
	var logWG sync.WaitGroup
	if m.opts.LogInterval > 0 {
		logWG.Add(1)
		go func() {
			defer logWG.Done()
			m.periodicProgress(start, done)
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, st := range m.workers {
		st := st
		g.Go(func() error {
			return m.run(gctx, st)
		})
	}
	err := g.Wait()

	close(done)
	logWG.Wait()

	p := m.progress(start)
	m.reporter.Progress(p)
	log.Infof("Mining finished: %d attempts in %s, %d results",
		p.Attempts, p.Elapsed.Round(time.Millisecond), len(p.Found))

	return p.Found, err
}

func (m *Miner) run(ctx context.Context, st *worker.State) error {
	for ctx.Err() == nil && !st.Stopped() {
		res, err := st.RunBatch(m.opts.BatchSize)
		if err != nil {
			return err
		}
		m.attempts.Add(uint64(res.Attempts))
		if len(res.Found) == 0 {
			continue
		}

		m.record(res.Found)
		if m.opts.StopOnFound {
			log.Debugf("Worker %d found %d results, stopping all workers",
				st.WorkerID(), len(res.Found))
			m.Stop()
		}
	}
	return nil
}

func (m *Miner) record(found []types.FoundResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, res := range found {
		m.found = append(m.found, res)
		m.reporter.Found(res)
	}
}

// Stop asks every worker to stop after its current batch.
func (m *Miner) Stop() {
	for _, st := range m.workers {
		st.SetStop(true)
	}
}

// Attempts returns the number of candidates hashed so far.
func (m *Miner) Attempts() uint64 {
	return m.attempts.Load()
}

func (m *Miner) progress(start time.Time) types.Progress {
	attempts := m.attempts.Load()

	m.mu.Lock()
	found := make([]types.FoundResult, len(m.found))
	copy(found, m.found)
	m.mu.Unlock()

	return types.Progress{
		WorkRate:   uint256.NewInt(attempts / 1_000_000),
		Attempts:   attempts,
		Elapsed:    time.Since(start),
		PatternLen: m.cfg.PatternLen,
		Found:      found,
	}
}

// periodicProgress reports throughput every LogInterval until done is
// closed.
func (m *Miner) periodicProgress(start time.Time, done <-chan struct{}) {
	ticker := time.NewTicker(m.opts.LogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.reporter.Progress(m.progress(start))
		case <-done:
			return
		}
	}
}
