package worker

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/screa/salty/internal/config"
	"github.com/screa/salty/pkg/types"
)

// ErrUninitializedWorker is returned by RunBatch before Init succeeded.
var ErrUninitializedWorker = errors.New("worker not initialized")

// State is the state of one logical CPU worker. Batches against a State must
// be serialized by the caller; SetStop may be called from any goroutine.
type State struct {
	config   *types.MinerConfig
	seed     uint64
	workerID uint32
	stop     atomic.Bool
}

// NewState returns a worker that is already initialized with cfg.
func NewState(cfg *types.MinerConfig, seed uint64, workerID uint32) *State {
	return &State{
		config:   cfg,
		seed:     seed,
		workerID: workerID,
	}
}

// Init validates raw and (re)initializes the worker. The stop flag is
// cleared. On error the worker is left unchanged and the error wraps a
// *config.ConfigError naming the bad field; use errors.As to get it.
func (s *State) Init(raw types.RawConfig, seed uint64, workerID uint32) error {
	cfg, err := config.ParseConfig(raw)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	s.config = cfg
	s.seed = seed
	s.workerID = workerID
	s.stop.Store(false)
	return nil
}

// SetStop sets the cooperative stop flag, checked at the start of the next
// batch.
func (s *State) SetStop(flag bool) {
	s.stop.Store(flag)
}

// Stopped reports whether the stop flag is set.
func (s *State) Stopped() bool {
	return s.stop.Load()
}

// Seed returns the seed the next batch will use.
func (s *State) Seed() uint64 {
	return s.seed
}

// WorkerID returns the worker id.
func (s *State) WorkerID() uint32 {
	return s.workerID
}

// RunBatch runs one batch of batchSize candidates and advances the seed by
// one. A stopped worker returns an empty result with zero attempts.
func (s *State) RunBatch(batchSize uint32) (*types.BatchResult, error) {
	if s.stop.Load() {
		return &types.BatchResult{Found: []types.FoundResult{}}, nil
	}
	if s.config == nil {
		return nil, ErrUninitializedWorker
	}

	found, attempts := RunBatch(s.config, s.seed, s.workerID, batchSize)
	s.seed++

	return &types.BatchResult{
		Found:    found,
		Attempts: attempts,
	}, nil
}
