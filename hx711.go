// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package hx711 is a bit bashed driver for the HX711 24-bit load cell ADC.
//
// The HX711 has no addressable bus. It is driven by two lines, PD_SCK, a
// clock driven by the host, and DOUT, a data line driven by the chip.
// The data line drops low when a conversion is ready to be shifted out.
// The result is shifted out MSB first over 24 clock pulses, and 1 to 3
// trailing pulses select the channel and gain for the following conversion.
// Holding the clock high for longer than 60µs powers the chip down.
//
// The driver is built on three capabilities, the clock output, the data
// input and a microsecond delay, so it is independent of how the lines are
// provided.  The cdev package provides lines from the GPIO character device.
//
// Example of use:
//
//  p, err := cdev.New("gpiochip0", rpi.GPIO5, rpi.GPIO6)
//  if err != nil {
//  	panic(err)
//  }
//  h, err := hx711.New(p.Clock, p.Data, delay.Spin{})
//  if err != nil {
//  	panic(err)
//  }
//  defer h.Close()
//  for {
//  	v, err := h.Read()
//  	...
//  }
//
// A HX711 is not safe for concurrent use. It has exactly one owner.
package hx711

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// OutputPin is the clock line (PD_SCK) driven by the host.
type OutputPin interface {
	SetHigh() error
	SetLow() error
}

// InputPin is the data line (DOUT) driven by the chip.
type InputPin interface {
	IsLow() (bool, error)
}

// Delayer blocks for at least the given number of microseconds.
type Delayer interface {
	Delay(us uint32)
}

const (
	// MaxValue is the largest value the HX711 can report.
	MaxValue int32 = 1<<23 - 1

	// MinValue is the smallest value the HX711 can report.
	MinValue int32 = -1 << 23

	// number of clock pulses that shift out a conversion.
	dataBits = 24
)

// Channel identifies the differential input of the HX711.
type Channel int

const (
	// ChannelA is the input on INA+/INA-.
	ChannelA Channel = iota
	// ChannelB is the input on INB+/INB-.
	ChannelB
)

func (c Channel) String() string {
	if c == ChannelB {
		return "B"
	}
	return "A"
}

// Mode is the combination of input channel and gain used for a conversion.
//
// The value of a Mode is the number of clock pulses that follow the 24 data
// pulses, which is how the mode is communicated to the chip.
type Mode int

const (
	// ChAGain128 selects channel A with a gain of 128.
	ChAGain128 Mode = iota + 1
	// ChBGain32 selects channel B with a gain of 32.
	ChBGain32
	// ChAGain64 selects channel A with a gain of 64.
	ChAGain64
)

// Pulses returns the number of clock pulses following the data pulses that
// select the mode.
func (m Mode) Pulses() int {
	return int(m)
}

// Gain returns the gain applied by the mode.
func (m Mode) Gain() int {
	switch m {
	case ChAGain128:
		return 128
	case ChBGain32:
		return 32
	case ChAGain64:
		return 64
	}
	return 0
}

// Channel returns the input channel selected by the mode.
func (m Mode) Channel() Channel {
	if m == ChBGain32 {
		return ChannelB
	}
	return ChannelA
}

// Valid returns true if the mode is one supported by the HX711.
func (m Mode) Valid() bool {
	return m >= ChAGain128 && m <= ChAGain64
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return fmt.Sprintf("%s%d", m.Channel(), m.Gain())
}

// ParseMode converts a mode name, such as "A128", "B32" or "A64", to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A128", "128":
		return ChAGain128, nil
	case "B32", "32":
		return ChBGain32, nil
	case "A64", "64":
		return ChAGain64, nil
	}
	return 0, ErrInvalidMode
}

// HX711 drives a HX711 connected via a clock and a data line.
type HX711 struct {
	clk  OutputPin
	dout InputPin
	d    Delayer

	// the mode used by the last completed clock sequence.
	mode Mode

	// the mode to be communicated by the next clock sequence.
	next Mode

	thold  uint32
	pdhold uint32
	closed bool
}

// New creates a HX711 driver and resets the chip into a known state.
//
// The clock is driven low and a complete conversion is read, and discarded,
// so the chip is primed with the initial mode. This blocks until the chip
// has a conversion ready.
func New(clk OutputPin, dout InputPin, d Delayer, options ...Option) (*HX711, error) {
	h := HX711{
		clk:    clk,
		dout:   dout,
		d:      d,
		mode:   ChAGain128,
		next:   ChAGain128,
		thold:  1,
		pdhold: 60,
	}
	for _, option := range options {
		option.applyOption(&h)
	}
	if !h.next.Valid() {
		return nil, ErrInvalidMode
	}
	if err := h.setLow(); err != nil {
		return nil, err
	}
	if _, err := h.Read(); err != nil {
		return nil, err
	}
	return &h, nil
}

// Close releases the lines, if they are closable.
//
// The clock line is left in whatever state it was last set to.
func (h *HX711) Close() error {
	if h.closed {
		return ErrClosed
	}
	h.closed = true
	var err error
	if c, ok := h.clk.(io.Closer); ok {
		err = c.Close()
	}
	if c, ok := h.dout.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Mode returns the mode communicated to the chip by the most recent
// complete clock sequence.
//
// This is the mode of the conversion currently in progress, which may
// differ from the mode most recently passed to SetMode.
func (h *HX711) Mode() Mode {
	return h.mode
}

// SetMode sets the mode to be communicated to the chip by the next
// retrieved conversion.
//
// This does not communicate with the chip. The chip applies the mode to the
// conversion following the next retrieval.
func (h *HX711) SetMode(m Mode) error {
	if !m.Valid() {
		return ErrInvalidMode
	}
	h.next = m
	return nil
}

// Ready returns true if a conversion is ready to be retrieved.
func (h *HX711) Ready() (bool, error) {
	if h.closed {
		return false, ErrClosed
	}
	return h.isLow()
}

// Retrieve returns the latest conversion if one is available.
//
// If no conversion is ready then ErrWouldBlock is returned and the clock
// line is untouched, so Retrieve can be called repeatedly to poll for a
// conversion. Once a conversion is ready the complete clock sequence is run
// before returning.
//
// The clock sequence must not be interrupted for longer than 60µs while the
// clock is high, or the chip powers down and the conversion is lost. The
// driver has no way to prevent that, e.g. by preemption, or to detect it.
func (h *HX711) Retrieve() (int32, error) {
	if h.closed {
		return 0, ErrClosed
	}
	ready, err := h.isLow()
	if err != nil {
		return 0, err
	}
	if !ready {
		return 0, ErrWouldBlock
	}
	var raw uint32
	for i := 0; i < dataBits; i++ {
		if err = h.setHigh(); err != nil {
			return 0, err
		}
		h.d.Delay(h.thold)
		low, err := h.isLow()
		if err != nil {
			return 0, err
		}
		raw <<= 1
		if !low {
			raw |= 1
		}
		if err = h.setLow(); err != nil {
			return 0, err
		}
		h.d.Delay(h.thold)
	}
	m := h.next
	for i := 0; i < m.Pulses(); i++ {
		if err = h.pulse(); err != nil {
			return 0, err
		}
	}
	h.mode = m
	return signExtend(raw), nil
}

// Read blocks until a conversion is available and returns it.
//
// There is no timeout. The chip bounds the wait by its conversion rate,
// 10 or 80 per second, unless it is powered down, in which case Read never
// returns. Callers that cannot block should poll Retrieve instead.
func (h *HX711) Read() (int32, error) {
	for {
		v, err := h.Retrieve()
		if err != ErrWouldBlock {
			return v, err
		}
	}
}

// Enable wakes the chip from power down by pulsing the clock.
//
// This does not wait for a conversion to become ready.
func (h *HX711) Enable() error {
	if h.closed {
		return ErrClosed
	}
	return h.pulse()
}

// Disable powers down the chip.
//
// The clock line is left high, which holds the chip in power down until
// Enable is called.
func (h *HX711) Disable() error {
	if h.closed {
		return ErrClosed
	}
	if err := h.setHigh(); err != nil {
		return err
	}
	h.d.Delay(h.pdhold)
	return nil
}

// Reset power cycles the chip.
//
// The chip returns from power down with channel A and gain 128, so that
// becomes the current mode.  The mode set by SetMode still applies to the
// next retrieval.
func (h *HX711) Reset() error {
	if err := h.Disable(); err != nil {
		return err
	}
	if err := h.Enable(); err != nil {
		return err
	}
	h.mode = ChAGain128
	return nil
}

func (h *HX711) pulse() error {
	if err := h.setHigh(); err != nil {
		return err
	}
	h.d.Delay(h.thold)
	if err := h.setLow(); err != nil {
		return err
	}
	h.d.Delay(h.thold)
	return nil
}

func (h *HX711) setHigh() error {
	if err := h.clk.SetHigh(); err != nil {
		return OutputPinError{err}
	}
	return nil
}

func (h *HX711) setLow() error {
	if err := h.clk.SetLow(); err != nil {
		return OutputPinError{err}
	}
	return nil
}

func (h *HX711) isLow() (bool, error) {
	low, err := h.dout.IsLow()
	if err != nil {
		return false, InputPinError{err}
	}
	return low, nil
}

// signExtend converts a 24-bit two's complement value to an int32.
func signExtend(raw uint32) int32 {
	raw &= 0xffffff
	if raw&0x800000 != 0 {
		return int32(raw | 0xff000000)
	}
	return int32(raw)
}

var (
	// ErrWouldBlock indicates a conversion is not yet ready.
	//
	// This is not a fault. The call should be retried later.
	ErrWouldBlock = errors.New("conversion not ready")

	// ErrClosed indicates the HX711 has been closed.
	ErrClosed = errors.New("closed")

	// ErrInvalidMode indicates a mode that the HX711 does not support.
	ErrInvalidMode = errors.New("invalid mode")
)

// OutputPinError indicates the clock line failed.
type OutputPinError struct {
	Err error
}

func (e OutputPinError) Error() string {
	return "clock pin: " + e.Err.Error()
}

// Unwrap returns the error returned by the clock line.
func (e OutputPinError) Unwrap() error {
	return e.Err
}

// InputPinError indicates the data line failed.
type InputPinError struct {
	Err error
}

func (e InputPinError) Error() string {
	return "data pin: " + e.Err.Error()
}

// Unwrap returns the error returned by the data line.
func (e InputPinError) Unwrap() error {
	return e.Err
}
