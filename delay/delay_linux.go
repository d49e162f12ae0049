// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package delay

import (
	"golang.org/x/sys/unix"
)

// Spin delays by busy waiting on the monotonic clock.
type Spin struct{}

// Delay spins until at least us microseconds have elapsed.
func (Spin) Delay(us uint32) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		Nanosleep{}.Delay(us)
		return
	}
	end := ts.Nano() + int64(us)*1000
	for ts.Nano() < end {
		unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	}
}

// Nanosleep delays using the nanosleep system call.
type Nanosleep struct{}

// Delay sleeps for at least us microseconds, resuming the sleep if
// interrupted by a signal.
func (Nanosleep) Delay(us uint32) {
	ts := unix.NsecToTimespec(int64(us) * 1000)
	for {
		var rem unix.Timespec
		err := unix.Nanosleep(&ts, &rem)
		if err != unix.EINTR {
			return
		}
		ts = rem
	}
}
