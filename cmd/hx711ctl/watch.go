// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/warthog618/gpiod"
	"github.com/warthog618/hx711/cdev"
	"github.com/warthog618/hx711/sampler"
	"go.uber.org/zap"
)

func init() {
	watchCmd.Flags().UintVarP(&watchOpts.Count, "count", "n", 0, "exit after n conversions")
	watchCmd.Flags().DurationVarP(&watchOpts.Interval, "interval", "i", 10*time.Millisecond, "the period between polls for a conversion")
	watchCmd.Flags().BoolVarP(&watchOpts.Edge, "edge", "e", false, "also poll on falling edges of DOUT")
	watchCmd.Flags().IntVar(&watchOpts.MaxFaults, "max-faults", 3, "exit after n consecutive faults")
	watchCmd.Flags().BoolVarP(&watchOpts.Quiet, "quiet", "q", false, "don't display conversion details")
	rootCmd.AddCommand(watchCmd)
}

var (
	watchCmd = &cobra.Command{
		Use:                   "watch [flags]",
		Short:                 "Watch the HX711 conversions",
		Long:                  `Continuously read conversions from the HX711 and print them to standard output.`,
		Args:                  cobra.NoArgs,
		RunE:                  watch,
		DisableFlagsInUseLine: true,
	}
	watchOpts = struct {
		Count     uint
		Interval  time.Duration
		Edge      bool
		MaxFaults int
		Quiet     bool
	}{}
)

func watch(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	var trigger chan struct{}
	opts := []cdev.Option{}
	if watchOpts.Edge {
		trigger = make(chan struct{}, 1)
		eh := func(evt gpiod.LineEvent) {
			select {
			case trigger <- struct{}{}:
			default:
			}
		}
		opts = append(opts, cdev.WithDataEventHandler(eh))
	}
	d, err := openDevice(log, opts...)
	if err != nil {
		return err
	}
	defer d.Close()
	smpchan := make(chan sampler.Sample, 8)
	sopts := []sampler.Option{
		sampler.WithInterval(watchOpts.Interval),
		sampler.WithLogger(log),
		sampler.WithMaxFaults(watchOpts.MaxFaults),
	}
	if trigger != nil {
		sopts = append(sopts, sampler.WithTrigger(trigger))
	}
	quit := make(chan struct{})
	s := sampler.New(d, forwarder(smpchan, quit), sopts...)
	err = watchWait(s, smpchan)
	close(quit)
	s.Close()
	st := s.Stats()
	log.Info("watch done",
		zap.Uint64("samples", st.Samples),
		zap.Uint64("polls", st.Polls),
		zap.Uint64("faults", st.Faults))
	return err
}

// forwarder returns a handler passing samples to smpchan until quit is
// closed, after which samples are dropped.
func forwarder(smpchan chan<- sampler.Sample, quit <-chan struct{}) sampler.Handler {
	return func(smp sampler.Sample) {
		select {
		case smpchan <- smp:
		case <-quit:
		}
	}
}

func watchWait(s *sampler.Sampler, smpchan <-chan sampler.Sample) error {
	sigdone := make(chan os.Signal, 1)
	signal.Notify(sigdone, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigdone)
	count := uint(0)
	for {
		select {
		case smp := <-smpchan:
			if !watchOpts.Quiet {
				fmt.Printf("sample:%6d %-4s %9d %s\n",
					smp.Seqno,
					smp.Mode,
					smp.Value,
					smp.Timestamp.Format(time.RFC3339Nano))
			}
			count++
			if watchOpts.Count > 0 && count >= watchOpts.Count {
				return nil
			}
		case <-s.Done():
			return s.Err()
		case <-sigdone:
			return nil
		}
	}
}
