// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package cdev

import "github.com/warthog618/gpiod"

// Option defines the interface required to provide an option to Open.
type Option interface {
	applyPinsOption(*pinsOptions)
}

type pinsOptions struct {
	clk  []gpiod.LineReqOption
	dout []gpiod.LineReqOption
}

// PullUpOption biases the data line.
type PullUpOption struct{}

// WithPullUp indicates the data line be pulled up, so it reads not ready if
// the HX711 is disconnected.
var WithPullUp = PullUpOption{}

func (o PullUpOption) applyPinsOption(po *pinsOptions) {
	po.dout = append(po.dout, gpiod.WithPullUp)
}

// ActiveLowClockOption inverts the clock line.
type ActiveLowClockOption struct{}

// WithActiveLowClock indicates the clock line is inverted between the host
// and the HX711, e.g. by a level shifting transistor.
var WithActiveLowClock = ActiveLowClockOption{}

func (o ActiveLowClockOption) applyPinsOption(po *pinsOptions) {
	po.clk = append(po.clk, gpiod.AsActiveLow)
}

// DataEventOption requests falling edge events from the data line.
type DataEventOption struct {
	eh gpiod.EventHandler
}

// WithDataEventHandler requests the data line with falling edge detection,
// calling eh for each edge.
//
// The data line falls when a conversion is ready, but also while a
// conversion is being shifted out, so an event is a hint that a conversion
// may be ready, not a guarantee.
func WithDataEventHandler(eh gpiod.EventHandler) DataEventOption {
	return DataEventOption{eh}
}

func (o DataEventOption) applyPinsOption(po *pinsOptions) {
	po.dout = append(po.dout, gpiod.WithFallingEdge, gpiod.WithEventHandler(o.eh))
}
