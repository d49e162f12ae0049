// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

// A utility to read a HX711 load cell ADC connected to GPIO lines.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/warthog618/gpiod/device/rpi"
	"github.com/warthog618/hx711"
	"github.com/warthog618/hx711/cdev"
	"github.com/warthog618/hx711/delay"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootOpts.Chip, "chip", "c", "gpiochip0", "the GPIO chip the HX711 is connected to")
	pf.StringVar(&rootOpts.Clk, "clk", "GPIO5", "the PD_SCK line offset or RPi pin name")
	pf.StringVar(&rootOpts.Dout, "dout", "GPIO6", "the DOUT line offset or RPi pin name")
	pf.StringVarP(&rootOpts.Mode, "mode", "m", "A128", "the channel and gain (A128, B32 or A64)")
	pf.Uint32Var(&rootOpts.Hold, "hold", 1, "the clock edge hold in microseconds")
	pf.StringVarP(&rootOpts.Delay, "delay", "d", "spin", "the delay provider (sleep, spin or nanosleep)")
	pf.BoolVarP(&rootOpts.PullUp, "pull-up", "u", false, "pull up the DOUT line")
	pf.DurationVar(&rootOpts.WaitChip, "wait-chip", 0, "wait up to this long for the GPIO chip to appear")
	pf.DurationVar(&rootOpts.Timeout, "timeout", 5*time.Second, "give up waiting for a conversion after this long")
	pf.StringVar(&rootOpts.LogLevel, "log-level", "warn", "the logging level (debug, info, warn, error)")
}

var (
	rootCmd = &cobra.Command{
		Use:   "hx711ctl",
		Short: "hx711ctl is a utility to read a HX711 load cell ADC",
		Long:  "hx711ctl is a utility to read a HX711 load cell ADC connected to GPIO lines on Linux GPIO character devices",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	rootOpts = struct {
		Chip     string
		Clk      string
		Dout     string
		Mode     string
		Hold     uint32
		Delay    string
		PullUp   bool
		WaitChip time.Duration
		Timeout  time.Duration
		LogLevel string
	}{}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(rootOpts.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level '%s'", rootOpts.LogLevel)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// parsePin converts a line offset or RPi pin name, such as J8p29 or GPIO5,
// to a line offset.
func parsePin(arg string) (int, error) {
	if o, err := strconv.ParseUint(arg, 10, 64); err == nil {
		return int(o), nil
	}
	o, err := rpi.Pin(arg)
	if err != nil {
		return 0, fmt.Errorf("can't parse pin '%s'", arg)
	}
	return o, nil
}

// openDevice requests the lines and resets the HX711.
//
// The lines are released when the HX711 is closed.
//
// The reset blocks until the HX711 has a conversion ready, and it will not
// if it is disconnected, so the wait is limited to the timeout.
func openDevice(log *zap.Logger, options ...cdev.Option) (*hx711.HX711, error) {
	clk, err := parsePin(rootOpts.Clk)
	if err != nil {
		return nil, err
	}
	dout, err := parsePin(rootOpts.Dout)
	if err != nil {
		return nil, err
	}
	mode, err := hx711.ParseMode(rootOpts.Mode)
	if err != nil {
		return nil, fmt.Errorf("can't parse mode '%s'", rootOpts.Mode)
	}
	d, err := delay.ByName(rootOpts.Delay)
	if err != nil {
		return nil, err
	}
	if rootOpts.WaitChip > 0 {
		log.Debug("waiting for chip", zap.String("chip", rootOpts.Chip))
		if err = waitChip(rootOpts.Chip, rootOpts.WaitChip); err != nil {
			return nil, err
		}
	}
	if rootOpts.PullUp {
		options = append(options, cdev.WithPullUp)
	}
	p, err := cdev.New(rootOpts.Chip, clk, dout, options...)
	if err != nil {
		return nil, err
	}
	log.Debug("requested lines",
		zap.String("chip", rootOpts.Chip),
		zap.Int("clk", clk),
		zap.Int("dout", dout))
	clkPin, doutPin := p.Clock, p.Data
	h, err := resetDevice(func() (*hx711.HX711, error) {
		return hx711.New(clkPin, doutPin, d,
			hx711.WithMode(mode),
			hx711.WithPulseHold(rootOpts.Hold))
	}, p.Close, rootOpts.Timeout)
	if err != nil {
		return nil, err
	}
	log.Info("reset HX711", zap.Stringer("mode", h.Mode()))
	return h, nil
}

// resetDevice runs reset, giving up after the timeout.
//
// The lines are released on failure, and on a timeout that fails the
// abandoned reset so its goroutine exits.
func resetDevice(reset func() (*hx711.HX711, error), release func() error, timeout time.Duration) (*hx711.HX711, error) {
	type result struct {
		h   *hx711.HX711
		err error
	}
	done := make(chan result, 1)
	go func() {
		h, err := reset()
		done <- result{h, err}
	}()
	select {
	case r := <-done:
		if r.err != nil {
			release()
			return nil, r.err
		}
		return r.h, nil
	case <-time.After(timeout):
		release()
		return nil, errTimeout
	}
}

var errTimeout = errors.New("timeout waiting for conversion - check the HX711 is connected and powered up")
