// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package sampler polls a HX711 from a background goroutine.
//
// The HX711 driver is synchronous and blocks while waiting for a conversion.
// A Sampler instead polls the non-blocking Retrieve, either periodically or
// when triggered, and passes each conversion to a handler.  The Sampler
// owns the driver while it runs.
package sampler

import (
	"sync"
	"time"

	"github.com/warthog618/hx711"
	"go.uber.org/zap"
)

// Source provides conversions.
//
// This is satisfied by *hx711.HX711.
type Source interface {
	Retrieve() (int32, error)
	Mode() hx711.Mode
}

// Sample is a single conversion.
type Sample struct {
	// The converted value.
	Value int32

	// The mode the conversion was performed with.
	Mode hx711.Mode

	// The time the conversion was retrieved.
	Timestamp time.Time

	// The sequence number of the sample, starting from 1.
	Seqno uint64
}

// Handler receives samples.
type Handler func(Sample)

// ErrorHandler receives faults returned by the Source.
type ErrorHandler func(error)

// Stats are the counters maintained by a Sampler.
type Stats struct {
	// Calls to Retrieve.
	Polls uint64

	// Conversions passed to the handler.
	Samples uint64

	// Errors returned by Retrieve, other than ErrWouldBlock.
	Faults uint64
}

// Sampler polls a Source for conversions.
type Sampler struct {
	src       Source
	h         Handler
	eh        ErrorHandler
	log       *zap.Logger
	interval  time.Duration
	trigger   <-chan struct{}
	maxFaults int

	mu    sync.Mutex
	stats Stats
	err   error

	closeOnce sync.Once
	closech   chan struct{}
	donech    chan struct{}
}

// New creates a Sampler and starts polling src.
//
// The handler is called from the Sampler's goroutine, so it should not block
// for longer than the conversion period or conversions will be missed.
// A nil handler discards conversions, leaving only the Stats.
func New(src Source, h Handler, options ...Option) *Sampler {
	s := Sampler{
		src:      src,
		h:        h,
		log:      zap.NewNop(),
		interval: 10 * time.Millisecond,
		closech:  make(chan struct{}),
		donech:   make(chan struct{}),
	}
	if s.h == nil {
		s.h = func(Sample) {}
	}
	for _, option := range options {
		option.applySamplerOption(&s)
	}
	s.log.Debug("sampler started",
		zap.Duration("interval", s.interval),
		zap.Bool("triggered", s.trigger != nil),
		zap.Int("max_faults", s.maxFaults))
	go s.run()
	return &s
}

// Close stops the Sampler and waits for its goroutine to exit.
//
// The Source is not closed.
func (s *Sampler) Close() {
	s.closeOnce.Do(func() {
		close(s.closech)
	})
	<-s.donech
}

// Done returns a channel that is closed when the Sampler stops, either
// due to Close or to faults.
func (s *Sampler) Done() <-chan struct{} {
	return s.donech
}

// Err returns the fault that stopped the Sampler, if any.
func (s *Sampler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stats returns a snapshot of the Sampler counters.
func (s *Sampler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Sampler) run() {
	defer close(s.donech)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	trigger := s.trigger
	faults := 0
	var seqno uint64
	for {
		select {
		case <-s.closech:
			s.log.Debug("sampler closed")
			return
		case <-t.C:
		case _, ok := <-trigger:
			if !ok {
				trigger = nil
				continue
			}
		}
		m := s.src.Mode()
		v, err := s.src.Retrieve()
		if err == hx711.ErrWouldBlock {
			s.count(false, false)
			continue
		}
		if err != nil {
			s.count(false, true)
			faults++
			s.log.Warn("retrieve failed",
				zap.Error(err),
				zap.Int("consecutive", faults))
			if s.eh != nil {
				s.eh(err)
			}
			if err == hx711.ErrClosed || (s.maxFaults > 0 && faults >= s.maxFaults) {
				s.mu.Lock()
				s.err = err
				s.mu.Unlock()
				s.log.Error("sampler stopped", zap.Error(err))
				return
			}
			continue
		}
		faults = 0
		seqno++
		s.count(true, false)
		s.h(Sample{
			Value:     v,
			Mode:      m,
			Timestamp: time.Now(),
			Seqno:     seqno,
		})
	}
}

func (s *Sampler) count(sample, fault bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Polls++
	if sample {
		s.stats.Samples++
	}
	if fault {
		s.stats.Faults++
	}
}
