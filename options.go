// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package hx711

// Option defines the interface required to provide a HX711 option.
type Option interface {
	applyOption(*HX711)
}

// ModeOption sets the initial mode.
type ModeOption Mode

// WithMode sets the mode communicated to the chip by the reset in New.
//
// The default is ChAGain128.
func WithMode(m Mode) ModeOption {
	return ModeOption(m)
}

func (o ModeOption) applyOption(h *HX711) {
	h.next = Mode(o)
}

// PulseHoldOption sets the period held after each clock edge.
type PulseHoldOption uint32

// WithPulseHold sets the period, in microseconds, held after each clock
// edge.
//
// The HX711 requires at least 0.1µs, and no more than 50µs for the high
// portion. The default is 1µs.
func WithPulseHold(us uint32) PulseHoldOption {
	return PulseHoldOption(us)
}

func (o PulseHoldOption) applyOption(h *HX711) {
	h.thold = uint32(o)
}

// PowerDownHoldOption sets the period the clock is held high by Disable.
type PowerDownHoldOption uint32

// WithPowerDownHold sets the period, in microseconds, the clock is held
// high to enter power down.
//
// The HX711 requires more than 60µs. The default is 60µs, and lesser values
// are ignored.
func WithPowerDownHold(us uint32) PowerDownHoldOption {
	return PowerDownHoldOption(us)
}

func (o PowerDownHoldOption) applyOption(h *HX711) {
	if o >= 60 {
		h.pdhold = uint32(o)
	}
}
