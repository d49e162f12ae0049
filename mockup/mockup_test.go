// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package mockup_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/hx711"
	"github.com/warthog618/hx711/mockup"
)

func TestNew(t *testing.T) {
	c := mockup.New()
	require.NotNil(t, c)
	assert.False(t, c.ClockHigh())
	assert.False(t, c.PoweredDown())
	assert.Equal(t, hx711.ChAGain128, c.Mode())
	assert.Zero(t, c.Pending())
	low, err := c.Data().IsLow()
	assert.Nil(t, err)
	assert.False(t, low)
}

// clockIn runs n clock pulses, returning the data read after each rising edge.
func clockIn(t *testing.T, c *mockup.Chip, n int) uint32 {
	t.Helper()
	clk := c.Clock()
	dout := c.Data()
	var v uint32
	for i := 0; i < n; i++ {
		require.Nil(t, clk.SetHigh())
		low, err := dout.IsLow()
		require.Nil(t, err)
		v <<= 1
		if !low {
			v |= 1
		}
		require.Nil(t, clk.SetLow())
	}
	return v
}

func TestShift(t *testing.T) {
	patterns := []struct {
		name   string
		raw    uint32
		pulses int
		mode   hx711.Mode
	}{
		{"a128", 0x123456, 25, hx711.ChAGain128},
		{"b32", 0xfedcba, 26, hx711.ChBGain32},
		{"a64", 0x800001, 27, hx711.ChAGain64},
	}
	c := mockup.New()
	for _, p := range patterns {
		tf := func(t *testing.T) {
			c.ClearTrace()
			c.Push(p.raw)
			low, err := c.Data().IsLow()
			require.Nil(t, err)
			require.True(t, low)
			v := clockIn(t, c, 24)
			assert.Equal(t, p.raw, v)
			// trailing pulses read high
			tail := clockIn(t, c, p.pulses-24)
			assert.Equal(t, uint32(1)<<uint(p.pulses-24)-1, tail)
			assert.Equal(t, p.mode, c.Mode())
			assert.Equal(t, []int{p.pulses}, c.Sequences())
		}
		t.Run(p.name, tf)
	}
}

func TestNotReadyFor(t *testing.T) {
	c := mockup.New()
	c.Push(1)
	c.NotReadyFor(2)
	dout := c.Data()
	for i := 0; i < 2; i++ {
		low, err := dout.IsLow()
		assert.Nil(t, err)
		assert.False(t, low)
	}
	low, err := dout.IsLow()
	assert.Nil(t, err)
	assert.True(t, low)
	assert.Equal(t, 3, c.Reads())
}

func TestPowerDown(t *testing.T) {
	c := mockup.New()
	clk := c.Clock()
	d := c.Delay()
	require.Nil(t, clk.SetHigh())
	d.Delay(mockup.PowerDownThreshold - 1)
	assert.False(t, c.PoweredDown())
	d.Delay(1)
	assert.True(t, c.PoweredDown())

	c.Push(1)
	low, err := c.Data().IsLow()
	assert.Nil(t, err)
	assert.False(t, low)

	require.Nil(t, clk.SetLow())
	assert.False(t, c.PoweredDown())
	assert.Equal(t, 1, c.Wakes())
	low, err = c.Data().IsLow()
	assert.Nil(t, err)
	assert.True(t, low)
}

func TestPowerDownLosesConversion(t *testing.T) {
	c := mockup.New()
	c.Push(0x123456, 0x000001)
	clockIn(t, c, 10)
	require.Nil(t, c.Clock().SetHigh())
	c.Delay().Delay(100)
	assert.True(t, c.PoweredDown())
	require.Nil(t, c.Clock().SetLow())
	assert.Equal(t, hx711.ChAGain128, c.Mode())
	v := clockIn(t, c, 24)
	assert.Equal(t, uint32(1), v)
}

func TestFaults(t *testing.T) {
	c := mockup.New()
	boom := errors.New("boom")
	c.FailWrite(2, boom)
	c.FailRead(1, boom)
	clk := c.Clock()
	assert.Nil(t, clk.SetHigh())
	assert.Equal(t, boom, clk.SetLow())
	assert.True(t, c.ClockHigh())
	assert.Nil(t, clk.SetLow())
	assert.False(t, c.ClockHigh())
	_, err := c.Data().IsLow()
	assert.Equal(t, boom, err)
	_, err = c.Data().IsLow()
	assert.Nil(t, err)
	assert.Equal(t, 3, c.Writes())
	assert.Equal(t, 2, c.Reads())
}

func TestTrace(t *testing.T) {
	c := mockup.New()
	c.Clock().SetHigh()
	c.Delay().Delay(3)
	c.Data().IsLow()
	c.Clock().SetLow()
	xtr := []mockup.Op{
		{Kind: mockup.OpSetHigh},
		{Kind: mockup.OpDelay, Value: 3},
		{Kind: mockup.OpRead, Value: 1},
		{Kind: mockup.OpSetLow},
	}
	if diff := cmp.Diff(xtr, c.Trace()); diff != "" {
		t.Errorf("trace mismatch (-want +got):\n%s", diff)
	}
	rising, falling := c.Edges()
	assert.Equal(t, 1, rising)
	assert.Equal(t, 1, falling)
	c.ClearTrace()
	assert.Empty(t, c.Trace())
	rising, falling = c.Edges()
	assert.Zero(t, rising)
	assert.Zero(t, falling)
	assert.Equal(t, "delay", mockup.OpDelay.String())
}

func TestClose(t *testing.T) {
	c := mockup.New()
	assert.Nil(t, c.Clock().Close())
	assert.Nil(t, c.Data().Close())
	clk, dout := c.Closed()
	assert.True(t, clk)
	assert.True(t, dout)
	assert.Equal(t, mockup.ErrClosed, c.Clock().SetHigh())
	_, err := c.Data().IsLow()
	assert.Equal(t, mockup.ErrClosed, err)
}
