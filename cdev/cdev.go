// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

// Package cdev provides the HX711 clock and data lines using the Linux GPIO
// character device.
package cdev

import (
	"fmt"

	"github.com/warthog618/gpiod"
)

// Consumer is the consumer label applied to lines requested by New.
const Consumer = "hx711"

// Output is a line driven by the host, such as the HX711 clock.
type Output struct {
	*gpiod.Line
}

// SetHigh drives the line high.
func (o *Output) SetHigh() error {
	return o.SetValue(1)
}

// SetLow drives the line low.
func (o *Output) SetLow() error {
	return o.SetValue(0)
}

// Input is a line read by the host, such as the HX711 data line.
type Input struct {
	*gpiod.Line
}

// IsLow returns true if the line is low.
func (i *Input) IsLow() (bool, error) {
	v, err := i.Value()
	if err != nil {
		return false, err
	}
	return v == 0, nil
}

// Pins are the pair of lines connected to a HX711.
type Pins struct {
	Clock *Output
	Data  *Input
}

// Open requests the clock and data lines from the chip.
//
// The clock is requested as an output, initially low, and the data line as
// an input. The chip may be closed once the lines are requested.
func Open(c *gpiod.Chip, clk, dout int, options ...Option) (*Pins, error) {
	po := pinsOptions{}
	for _, option := range options {
		option.applyPinsOption(&po)
	}
	p := Pins{}
	var err error
	defer func() {
		if err != nil {
			p.Close()
		}
	}()
	clkOpts := append([]gpiod.LineReqOption{gpiod.AsOutput(0)}, po.clk...)
	var l *gpiod.Line
	l, err = c.RequestLine(clk, clkOpts...)
	if err != nil {
		return nil, fmt.Errorf("request clock line %d: %w", clk, err)
	}
	p.Clock = &Output{l}
	doutOpts := append([]gpiod.LineReqOption{gpiod.AsInput}, po.dout...)
	l, err = c.RequestLine(dout, doutOpts...)
	if err != nil {
		return nil, fmt.Errorf("request data line %d: %w", dout, err)
	}
	p.Data = &Input{l}
	return &p, nil
}

// New opens the named chip and requests the clock and data lines from it.
func New(chip string, clk, dout int, options ...Option) (*Pins, error) {
	c, err := gpiod.NewChip(chip, gpiod.WithConsumer(Consumer))
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return Open(c, clk, dout, options...)
}

// Close releases the lines.
func (p *Pins) Close() error {
	var err error
	if p.Clock != nil {
		err = p.Clock.Close()
		p.Clock = nil
	}
	if p.Data != nil {
		if derr := p.Data.Close(); err == nil {
			err = derr
		}
		p.Data = nil
	}
	return err
}
