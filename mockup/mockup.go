// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

// Package mockup provides a simulated HX711.
//
// This is intended for testing the hx711 driver, but could also be used for
// testing by users of their own code that uses the driver.
//
// The simulated chip provides the clock, data and delay capabilities
// required by the driver, behaves as the HX711 does in response to them,
// and records the activity on the lines so it can be checked.
package mockup

import (
	"errors"
	"sync"

	"github.com/warthog618/hx711"
)

// PowerDownThreshold is the period, in microseconds, the clock must be held
// high to power down the chip.
const PowerDownThreshold = 60

// OpKind identifies an operation performed on the chip.
type OpKind int

const (
	// OpSetHigh is a write driving the clock high.
	OpSetHigh OpKind = iota
	// OpSetLow is a write driving the clock low.
	OpSetLow
	// OpRead is a read of the data line.
	OpRead
	// OpDelay is a delay.
	OpDelay
)

func (k OpKind) String() string {
	switch k {
	case OpSetHigh:
		return "high"
	case OpSetLow:
		return "low"
	case OpRead:
		return "read"
	case OpDelay:
		return "delay"
	}
	return "unknown"
}

// Op is a single operation performed on the chip.
type Op struct {
	Kind OpKind
	// The level read for OpRead, or the period for OpDelay.
	Value uint32
}

// Chip simulates a HX711.
type Chip struct {
	mu sync.Mutex

	// conversions waiting to be shifted out.
	queue []uint32
	// readiness checks to report not ready regardless of queue.
	notReady int

	clk         bool
	highFor     uint32
	poweredDown bool

	shifting bool
	current  uint32
	// pulses in each clock sequence, the last being the current sequence.
	seqs []int
	mode hx711.Mode

	writes    int
	reads     int
	rising    int
	falling   int
	wakes     int
	failWrite map[int]error
	failRead  map[int]error
	trace     []Op

	clkClosed  bool
	doutClosed bool
}

// New creates a simulated HX711 with its clock low and no conversions
// ready.
func New() *Chip {
	return &Chip{
		mode:      hx711.ChAGain128,
		failWrite: map[int]error{},
		failRead:  map[int]error{},
	}
}

// Clock returns the clock line of the chip.
func (c *Chip) Clock() *Clock {
	return &Clock{c}
}

// Data returns the data line of the chip.
func (c *Chip) Data() *Data {
	return &Data{c}
}

// Delay returns a delay provider that advances the chip's notion of time
// rather than blocking.
func (c *Chip) Delay() *Delay {
	return &Delay{c}
}

// Push queues conversions to be shifted out.
//
// Only the lower 24 bits of each value are used.
func (c *Chip) Push(raw ...uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range raw {
		c.queue = append(c.queue, r&0xffffff)
	}
}

// Pending returns the number of queued conversions not yet shifted out.
func (c *Chip) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// NotReadyFor forces the next n readiness checks to report no conversion
// ready.
func (c *Chip) NotReadyFor(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notReady = n
}

// FailWrite makes the nth clock write, counting from 1 over the life of the
// chip, fail with err.
//
// A failed write does not change the clock level.
func (c *Chip) FailWrite(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWrite[n] = err
}

// FailRead makes the nth data read, counting from 1 over the life of the
// chip, fail with err.
func (c *Chip) FailRead(n int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failRead[n] = err
}

// Writes returns the number of clock writes attempted.
func (c *Chip) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// Reads returns the number of data reads attempted.
func (c *Chip) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Edges returns the number of rising and falling edges seen on the clock.
func (c *Chip) Edges() (rising, falling int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rising, c.falling
}

// ClockHigh returns true if the clock line is high.
func (c *Chip) ClockHigh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clk
}

// PoweredDown returns true if the chip is powered down.
func (c *Chip) PoweredDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.poweredDown
}

// Wakes returns the number of times the chip has returned from power down.
func (c *Chip) Wakes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wakes
}

// Mode returns the mode the chip will use for its next conversion.
//
// This is set by the number of pulses in the most recent clock sequence, or
// reverts to ChAGain128 on returning from power down.
func (c *Chip) Mode() hx711.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latchMode()
	return c.mode
}

// Sequences returns the number of clock pulses in each clock sequence that
// shifted out a conversion, in order.
func (c *Chip) Sequences() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.seqs...)
}

// Trace returns the operations performed on the chip since it was created
// or the trace last cleared.
func (c *Chip) Trace() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Op(nil), c.trace...)
}

// ClearTrace discards the recorded operations and counters, but not the
// state of the chip.
func (c *Chip) ClearTrace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace = nil
	c.latchMode()
	if c.shifting {
		c.seqs = c.seqs[len(c.seqs)-1:]
	} else {
		c.seqs = nil
	}
	c.rising = 0
	c.falling = 0
}

// Closed returns whether the clock and data lines have been closed.
func (c *Chip) Closed() (clk, dout bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clkClosed, c.doutClosed
}

func (c *Chip) write(high bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	kind := OpSetLow
	if high {
		kind = OpSetHigh
	}
	c.trace = append(c.trace, Op{Kind: kind})
	if err, ok := c.failWrite[c.writes]; ok {
		return err
	}
	if c.clkClosed {
		return ErrClosed
	}
	if high == c.clk {
		return nil
	}
	c.clk = high
	if high {
		c.rising++
		c.risingEdge()
		return nil
	}
	c.falling++
	c.highFor = 0
	if c.poweredDown {
		c.poweredDown = false
		c.wakes++
		c.mode = hx711.ChAGain128
	}
	return nil
}

func (c *Chip) risingEdge() {
	if c.poweredDown {
		return
	}
	if c.shifting {
		c.seqs[len(c.seqs)-1]++
		return
	}
	if c.notReady == 0 && len(c.queue) > 0 {
		c.latchMode()
		c.shifting = true
		c.current = c.queue[0]
		c.queue = c.queue[1:]
		c.seqs = append(c.seqs, 1)
	}
}

// latchMode ends a complete clock sequence, committing its mode.
func (c *Chip) latchMode() {
	if !c.shifting || c.clk {
		return
	}
	n := c.seqs[len(c.seqs)-1]
	if n <= 24 {
		return
	}
	c.shifting = false
	if m := hx711.Mode(n - 24); m.Valid() {
		c.mode = m
	}
}

func (c *Chip) read() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads++
	if err, ok := c.failRead[c.reads]; ok {
		c.trace = append(c.trace, Op{Kind: OpRead})
		return false, err
	}
	if c.doutClosed {
		return false, ErrClosed
	}
	low := c.dataLow()
	v := uint32(1)
	if low {
		v = 0
	}
	c.trace = append(c.trace, Op{Kind: OpRead, Value: v})
	return low, nil
}

func (c *Chip) dataLow() bool {
	if c.poweredDown {
		return false
	}
	c.latchMode()
	if c.shifting {
		n := c.seqs[len(c.seqs)-1]
		if n > 24 {
			return false
		}
		return c.current&(1<<uint(24-n)) == 0
	}
	if c.notReady > 0 {
		c.notReady--
		return false
	}
	return len(c.queue) > 0
}

func (c *Chip) delay(us uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace = append(c.trace, Op{Kind: OpDelay, Value: us})
	if !c.clk || c.poweredDown {
		return
	}
	c.highFor += us
	if c.highFor >= PowerDownThreshold {
		c.poweredDown = true
		// any conversion being shifted out is lost.
		c.shifting = false
	}
}

// Clock is the clock line of a simulated HX711.
type Clock struct {
	c *Chip
}

// SetHigh drives the clock high.
func (l *Clock) SetHigh() error {
	return l.c.write(true)
}

// SetLow drives the clock low.
func (l *Clock) SetLow() error {
	return l.c.write(false)
}

// Close marks the line closed.
func (l *Clock) Close() error {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	l.c.clkClosed = true
	return nil
}

// Data is the data line of a simulated HX711.
type Data struct {
	c *Chip
}

// IsLow returns true if the data line is low.
func (l *Data) IsLow() (bool, error) {
	return l.c.read()
}

// Close marks the line closed.
func (l *Data) Close() error {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	l.c.doutClosed = true
	return nil
}

// Delay advances the time seen by a simulated HX711.
type Delay struct {
	c *Chip
}

// Delay records the delay and applies it to the chip.
func (d *Delay) Delay(us uint32) {
	d.c.delay(us)
}

// ErrClosed indicates the line has been closed.
var ErrClosed = errors.New("line closed")
