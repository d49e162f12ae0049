// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package delay provides microsecond delay providers for the hx711 driver.
//
// The HX711 clock must not be held high for longer than 60µs, or the chip
// powers down, and the hold after each clock edge need only be 0.1µs, so the
// choice of delay matters. Sleep is the most CPU friendly but the least
// accurate, as the wakeup is subject to the scheduler. Spin is the most
// accurate but burns CPU for the duration.
package delay

import "time"

// Sleep delays using time.Sleep.
type Sleep struct{}

// Delay sleeps for at least us microseconds.
func (Sleep) Delay(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

// Func adapts a function to a delay provider.
type Func func(us uint32)

// Delay calls f(us).
func (f Func) Delay(us uint32) {
	f(us)
}

// Provider is the common interface of the delay providers.
type Provider interface {
	Delay(us uint32)
}

// ByName returns the delay provider with the given name, being one of
// "sleep", "spin" or "nanosleep".
func ByName(name string) (Provider, error) {
	switch name {
	case "sleep":
		return Sleep{}, nil
	case "spin", "":
		return Spin{}, nil
	case "nanosleep":
		return Nanosleep{}, nil
	}
	return nil, UnknownError{name}
}

// UnknownError indicates the named delay provider is not supported.
type UnknownError struct {
	Name string
}

func (e UnknownError) Error() string {
	return "unknown delay provider: " + e.Name
}
