// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package sampler_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/hx711"
	"github.com/warthog618/hx711/mockup"
	"github.com/warthog618/hx711/sampler"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newHX711(t *testing.T) (*hx711.HX711, *mockup.Chip) {
	t.Helper()
	c := mockup.New()
	c.Push(0)
	h, err := hx711.New(c.Clock(), c.Data(), c.Delay())
	require.Nil(t, err)
	return h, c
}

func waitSample(t *testing.T, ch <-chan sampler.Sample) sampler.Sample {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for sample")
	}
	return sampler.Sample{}
}

func TestSampler(t *testing.T) {
	h, c := newHX711(t)
	ch := make(chan sampler.Sample, 4)
	s := sampler.New(h, func(smp sampler.Sample) {
		ch <- smp
	}, sampler.WithInterval(time.Millisecond))
	defer s.Close()

	vv := []uint32{0x000001, 0xffffff, 0x7fffff}
	xv := []int32{1, -1, hx711.MaxValue}
	c.Push(vv...)
	for i, x := range xv {
		smp := waitSample(t, ch)
		assert.Equal(t, x, smp.Value)
		assert.Equal(t, uint64(i+1), smp.Seqno)
		assert.Equal(t, hx711.ChAGain128, smp.Mode)
		assert.False(t, smp.Timestamp.IsZero())
	}
	// idle polls are not faults
	time.Sleep(5 * time.Millisecond)
	st := s.Stats()
	assert.Equal(t, uint64(3), st.Samples)
	assert.Zero(t, st.Faults)
	assert.Greater(t, st.Polls, st.Samples)
	assert.Nil(t, s.Err())
}

func TestSamplerMode(t *testing.T) {
	h, c := newHX711(t)
	require.Nil(t, h.SetMode(hx711.ChBGain32))
	ch := make(chan sampler.Sample, 4)
	s := sampler.New(h, func(smp sampler.Sample) {
		ch <- smp
	}, sampler.WithInterval(time.Millisecond))
	defer s.Close()

	c.Push(1, 2)
	// the first conversion was performed before the mode change
	smp := waitSample(t, ch)
	assert.Equal(t, hx711.ChAGain128, smp.Mode)
	smp = waitSample(t, ch)
	assert.Equal(t, hx711.ChBGain32, smp.Mode)
}

func TestSamplerTrigger(t *testing.T) {
	h, c := newHX711(t)
	ch := make(chan sampler.Sample, 4)
	trig := make(chan struct{})
	s := sampler.New(h, func(smp sampler.Sample) {
		ch <- smp
	},
		sampler.WithInterval(time.Hour),
		sampler.WithTrigger(trig))
	defer s.Close()

	c.Push(42)
	select {
	case <-ch:
		t.Fatal("sampled without trigger")
	case <-time.After(20 * time.Millisecond):
	}
	trig <- struct{}{}
	smp := waitSample(t, ch)
	assert.Equal(t, int32(42), smp.Value)

	// closed trigger falls back to the interval
	close(trig)
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, uint64(1), s.Stats().Polls)
}

func TestSamplerFaults(t *testing.T) {
	h, c := newHX711(t)
	boom := errors.New("boom")
	core, logs := observer.New(zapcore.WarnLevel)
	var faults []error
	c.FailRead(c.Reads()+1, boom)
	c.FailRead(c.Reads()+2, boom)
	s := sampler.New(h, func(smp sampler.Sample) {
		t.Errorf("unexpected sample: %v", smp)
	},
		sampler.WithInterval(time.Millisecond),
		sampler.WithLogger(zap.New(core)),
		sampler.WithErrorHandler(func(err error) {
			faults = append(faults, err)
		}),
		sampler.WithMaxFaults(2))

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("sampler did not stop")
	}
	s.Close()
	err := s.Err()
	var ierr hx711.InputPinError
	require.True(t, errors.As(err, &ierr))
	assert.True(t, errors.Is(err, boom))
	assert.Len(t, faults, 2)
	st := s.Stats()
	assert.Equal(t, uint64(2), st.Faults)
	assert.Equal(t, uint64(2), st.Polls)
	assert.Equal(t, 2, logs.FilterMessage("retrieve failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("sampler stopped").Len())
}

func TestSamplerFaultRecovery(t *testing.T) {
	h, c := newHX711(t)
	c.FailRead(c.Reads()+1, errors.New("boom"))
	ch := make(chan sampler.Sample, 4)
	s := sampler.New(h, func(smp sampler.Sample) {
		ch <- smp
	},
		sampler.WithInterval(time.Millisecond),
		sampler.WithMaxFaults(2))
	defer s.Close()

	c.Push(7)
	smp := waitSample(t, ch)
	assert.Equal(t, int32(7), smp.Value)
	assert.Equal(t, uint64(1), s.Stats().Faults)
	assert.Nil(t, s.Err())
}

func TestSamplerClosedSource(t *testing.T) {
	h, _ := newHX711(t)
	require.Nil(t, h.Close())
	s := sampler.New(h, func(smp sampler.Sample) {},
		sampler.WithInterval(time.Millisecond))
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("sampler did not stop")
	}
	assert.Equal(t, hx711.ErrClosed, s.Err())
}

func TestSamplerNilHandler(t *testing.T) {
	h, c := newHX711(t)
	s := sampler.New(h, nil, sampler.WithInterval(time.Millisecond))
	defer s.Close()
	c.Push(1, 2)
	deadline := time.Now().Add(time.Second)
	for s.Stats().Samples < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, uint64(2), s.Stats().Samples)
	assert.Nil(t, s.Err())
}

func TestClose(t *testing.T) {
	h, _ := newHX711(t)
	s := sampler.New(h, func(smp sampler.Sample) {})
	s.Close()
	select {
	case <-s.Done():
	default:
		t.Error("not done after close")
	}
	// idempotent
	s.Close()
	assert.Nil(t, s.Err())
}
