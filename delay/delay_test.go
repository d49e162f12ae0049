// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package delay_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/hx711"
	"github.com/warthog618/hx711/delay"
)

// the providers satisfy the driver capability.
var (
	_ hx711.Delayer = delay.Sleep{}
	_ hx711.Delayer = delay.Spin{}
	_ hx711.Delayer = delay.Nanosleep{}
	_ hx711.Delayer = delay.Func(nil)
)

func TestProviders(t *testing.T) {
	patterns := []struct {
		name string
		p    delay.Provider
	}{
		{"sleep", delay.Sleep{}},
		{"spin", delay.Spin{}},
		{"nanosleep", delay.Nanosleep{}},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			for _, us := range []uint32{0, 1, 60, 500} {
				start := time.Now()
				p.p.Delay(us)
				assert.GreaterOrEqual(t, int64(time.Since(start)), int64(time.Duration(us)*time.Microsecond))
			}
		}
		t.Run(p.name, tf)
	}
}

func TestFunc(t *testing.T) {
	var got []uint32
	f := delay.Func(func(us uint32) {
		got = append(got, us)
	})
	f.Delay(3)
	f.Delay(60)
	assert.Equal(t, []uint32{3, 60}, got)
}

func TestByName(t *testing.T) {
	patterns := []struct {
		name string
		p    delay.Provider
	}{
		{"sleep", delay.Sleep{}},
		{"spin", delay.Spin{}},
		{"", delay.Spin{}},
		{"nanosleep", delay.Nanosleep{}},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			d, err := delay.ByName(p.name)
			require.Nil(t, err)
			assert.Equal(t, p.p, d)
		}
		t.Run(p.name, tf)
	}
	d, err := delay.ByName("busy")
	assert.Nil(t, d)
	assert.Equal(t, delay.UnknownError{Name: "busy"}, err)
	assert.Equal(t, "unknown delay provider: busy", err.Error())
}
