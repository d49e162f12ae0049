// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

package sampler

import (
	"time"

	"go.uber.org/zap"
)

// Option defines the interface required to provide a Sampler option.
type Option interface {
	applySamplerOption(*Sampler)
}

// IntervalOption sets the polling period.
type IntervalOption time.Duration

// WithInterval sets the period between polls.
//
// The HX711 converts at 10 or 80 per second, so the interval should be
// somewhat less than that period to avoid missing conversions.
// The default is 10ms.
func WithInterval(d time.Duration) IntervalOption {
	return IntervalOption(d)
}

func (o IntervalOption) applySamplerOption(s *Sampler) {
	if o > 0 {
		s.interval = time.Duration(o)
	}
}

// TriggerOption provides an additional polling trigger.
type TriggerOption <-chan struct{}

// WithTrigger polls the Source whenever a value is received from ch, in
// addition to the periodic polls.
//
// This is typically fed by falling edges on the data line.
func WithTrigger(ch <-chan struct{}) TriggerOption {
	return TriggerOption(ch)
}

func (o TriggerOption) applySamplerOption(s *Sampler) {
	s.trigger = o
}

// LoggerOption sets the logger.
type LoggerOption struct {
	l *zap.Logger
}

// WithLogger sets the logger used to report faults.
//
// By default nothing is logged.
func WithLogger(l *zap.Logger) LoggerOption {
	return LoggerOption{l}
}

func (o LoggerOption) applySamplerOption(s *Sampler) {
	if o.l != nil {
		s.log = o.l
	}
}

// ErrorHandlerOption sets the fault handler.
type ErrorHandlerOption ErrorHandler

// WithErrorHandler sets a handler called for each fault returned by the
// Source.
func WithErrorHandler(eh ErrorHandler) ErrorHandlerOption {
	return ErrorHandlerOption(eh)
}

func (o ErrorHandlerOption) applySamplerOption(s *Sampler) {
	s.eh = ErrorHandler(o)
}

// MaxFaultsOption limits consecutive faults.
type MaxFaultsOption int

// WithMaxFaults stops the Sampler after n consecutive faults.
//
// By default the Sampler continues polling regardless of faults.
func WithMaxFaults(n int) MaxFaultsOption {
	return MaxFaultsOption(n)
}

func (o MaxFaultsOption) applySamplerOption(s *Sampler) {
	s.maxFaults = int(o)
}
