package worker

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/screa/salty/internal/config"
	"github.com/screa/salty/pkg/types"
)

func conformanceRaw() types.RawConfig {
	return types.RawConfig{
		Factory:  "0x0000000000000000000000000000000000000000",
		Caller:   "0x1111111111111111111111111111111111111111",
		Codehash: "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		Worksize: 0x4400000,
		Pattern:  "0x00",
	}
}

func TestStateUninitialized(t *testing.T) {
	var s State
	if _, err := s.RunBatch(10); !errors.Is(err, ErrUninitializedWorker) {
		t.Fatalf("RunBatch() error = %v, want ErrUninitializedWorker", err)
	}
}

func TestStateInitRejectsBadConfig(t *testing.T) {
	var s State
	raw := conformanceRaw()
	raw.Caller = "0xdeadbeef"

	err := s.Init(raw, 1, 1)
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Init() error = %v, want *config.ConfigError", err)
	}
	if cfgErr.Field != "caller" || cfgErr.Expected != 20 || cfgErr.Actual != 4 {
		t.Errorf("ConfigError = %+v", cfgErr)
	}
	if _, err := s.RunBatch(1); !errors.Is(err, ErrUninitializedWorker) {
		t.Errorf("worker initialized after failed Init: %v", err)
	}
}

func TestStateRunBatch(t *testing.T) {
	var s State
	if err := s.Init(conformanceRaw(), 42, 7); err != nil {
		t.Fatal(err)
	}

	res, err := s.RunBatch(1024)
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempts != 1024 || !reflect.DeepEqual(res.Found, conformanceFound) {
		t.Errorf("first batch = %+v", res)
	}
	if s.Seed() != 43 {
		t.Errorf("seed = %d, want 43", s.Seed())
	}

	// The second batch explores the next stream.
	want, _ := RunBatch(conformanceConfig(0x00), 43, 7, 1024)
	res, err = s.RunBatch(1024)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Found, want) {
		t.Errorf("second batch = %+v, want %+v", res.Found, want)
	}
	if s.Seed() != 44 {
		t.Errorf("seed = %d, want 44", s.Seed())
	}
}

func TestStateStop(t *testing.T) {
	s := NewState(conformanceConfig(0x00), 5, 1)
	s.SetStop(true)
	s.SetStop(true)

	res, err := s.RunBatch(1000)
	if err != nil {
		t.Fatal(err)
	}
	if res.Attempts != 0 || len(res.Found) != 0 {
		t.Errorf("stopped batch = %+v", res)
	}
	if s.Seed() != 5 {
		t.Errorf("stopped batch advanced seed to %d", s.Seed())
	}

	s.SetStop(false)
	if res, _ := s.RunBatch(8); res.Attempts != 8 {
		t.Errorf("attempts after resume = %d", res.Attempts)
	}

	// Init clears the flag.
	s.SetStop(true)
	if err := s.Init(conformanceRaw(), 1, 1); err != nil {
		t.Fatal(err)
	}
	if s.Stopped() {
		t.Error("Init did not clear stop")
	}
}

func TestStateStoppedBeforeInit(t *testing.T) {
	var s State
	s.SetStop(true)
	res, err := s.RunBatch(10)
	if err != nil || res.Attempts != 0 {
		t.Errorf("RunBatch() = %+v, %v", res, err)
	}
}

func TestStatesAreIndependent(t *testing.T) {
	states := make([]*State, 4)
	for i := range states {
		states[i] = NewState(conformanceConfig(0x00), 100, uint32(i))
	}

	var wg sync.WaitGroup
	results := make([]*types.BatchResult, len(states))
	for i, s := range states {
		wg.Add(1)
		go func(i int, s *State) {
			defer wg.Done()
			results[i], _ = s.RunBatch(256)
		}(i, s)
	}
	wg.Wait()

	for i, s := range states {
		want, _ := RunBatch(conformanceConfig(0x00), 100, uint32(i), 256)
		if !reflect.DeepEqual(results[i].Found, want) {
			t.Errorf("worker %d: concurrent batch differs", i)
		}
		if s.Seed() != 101 {
			t.Errorf("worker %d: seed = %d", i, s.Seed())
		}
	}
}
