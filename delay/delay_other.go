// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build !linux
// +build !linux

package delay

import "time"

// Spin delays by busy waiting on the monotonic clock.
type Spin struct{}

// Delay spins until at least us microseconds have elapsed.
func (Spin) Delay(us uint32) {
	end := time.Now().Add(time.Duration(us) * time.Microsecond)
	for time.Now().Before(end) {
	}
}

// Nanosleep falls back to time.Sleep where nanosleep is unavailable.
type Nanosleep struct{}

// Delay sleeps for at least us microseconds.
func (Nanosleep) Delay(us uint32) {
	Sleep{}.Delay(us)
}
