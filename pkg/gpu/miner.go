package gpu

import (
	"context"
	"time"

	"github.com/decred/dcrd/crypto/rand"
	"github.com/holiman/uint256"
	"github.com/screa/salty/internal/crypto"
	"github.com/screa/salty/pkg/types"
)

// Entropy supplies the random salt segment and starting nonce of each
// search round.
type Entropy interface {
	Read(b []byte)
	Uint32() uint32
}

// Clock measures dispatch durations and performs the throttle sleep.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemEntropy struct{}

func (systemEntropy) Read(b []byte)  { rand.Read(b) }
func (systemEntropy) Uint32() uint32 { return rand.Uint32() }

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// Option configures a Miner.
type Option func(*Miner)

// WithEntropy replaces the default random source.
func WithEntropy(e Entropy) Option {
	return func(m *Miner) { m.entropy = e }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(m *Miner) { m.clock = c }
}

// Miner drives a Device through repeated search rounds. Each round draws a
// fresh salt segment and starting nonce, then dispatches the kernel with
// successive nonces until the device reports a solution.
type Miner struct {
	cfg      *types.MinerConfig
	device   Device
	reporter types.Reporter
	entropy  Entropy
	clock    Clock
}

// New returns a Miner for cfg on device.
func New(cfg *types.MinerConfig, device Device, reporter types.Reporter, opts ...Option) *Miner {
	m := &Miner{
		cfg:      cfg,
		device:   device,
		reporter: reporter,
		entropy:  systemEntropy{},
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run searches until ctx is cancelled or the device fails. Cancellation is
// checked before every round and every dispatch and ends the run without an
// error. Device failures are returned as *DeviceError. The results found so
// far are returned in both cases.
func (m *Miner) Run(ctx context.Context) ([]types.FoundResult, error) {
	sess, err := m.device.Open(KernelSource(m.cfg))
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	pattern := m.cfg.Pattern[:m.cfg.PatternLen]
	workFactor := uint64(m.cfg.Worksize / 1_000_000)
	log.Infof("Mining on %s: worksize %d, pattern %x", m.device.Name(), m.cfg.Worksize, pattern)

	var (
		found        = make([]types.FoundResult, 0)
		hasher       = crypto.NewHasher()
		msg          = crypto.NewMessage(m.cfg)
		dispatches   uint64
		lastProgress int64
		workDuration time.Duration
		start        = m.clock.Now()
	)

	for {
		if ctx.Err() != nil {
			return found, nil
		}

		var segment [crypto.SegmentLen]byte
		m.entropy.Read(segment[:])
		if err := sess.WriteSalt(segment); err != nil {
			return found, err
		}
		if err := sess.WritePattern(pattern); err != nil {
			return found, err
		}
		nonce := m.entropy.Uint32()
		if err := sess.WriteNonce(nonce); err != nil {
			return found, err
		}
		if err := sess.ResetSolution(); err != nil {
			return found, err
		}
		log.Debugf("New round: segment %x, nonce %d", segment, nonce)

		var solution uint64
		for {
			if ctx.Err() != nil {
				return found, nil
			}
			if err := sess.Dispatch(m.cfg.Worksize, uint32(len(pattern))); err != nil {
				return found, err
			}

			now := m.clock.Now()
			if now.Unix()-lastProgress >= 1 {
				lastProgress = now.Unix()
				m.reporter.Progress(types.Progress{
					WorkRate:   new(uint256.Int).Mul(uint256.NewInt(workFactor), uint256.NewInt(dispatches)),
					Attempts:   dispatches * uint64(m.cfg.Worksize),
					Dispatches: dispatches,
					Elapsed:    now.Sub(start),
					PatternLen: m.cfg.PatternLen,
					Found:      found,
				})
			}
			dispatches++

			// Let the device work for about as long as the last dispatch
			// took before blocking on the read.
			if ms := workDuration.Milliseconds(); ms != 0 {
				m.clock.Sleep(time.Duration(ms*990/1000) * time.Millisecond)
			}

			solution, err = sess.ReadSolution()
			if err != nil {
				return found, err
			}
			workDuration = m.clock.Now().Sub(now)

			if solution != 0 {
				break
			}
			nonce++
			if err := sess.WriteNonce(nonce); err != nil {
				return found, err
			}
		}

		msg.SetSegment(segment)
		msg.SetNonce(solution)
		addr := hasher.Address(&msg)
		if !crypto.Matches(&addr, pattern) {
			log.Debugf("Dropping solution %#x: host hash %s does not match", solution, addr.Hex())
			continue
		}

		result := crypto.NewFoundResult(&msg, addr, pattern)
		found = append(found, result)
		m.reporter.Found(result)
	}
}
