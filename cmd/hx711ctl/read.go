// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/warthog618/hx711"
)

func init() {
	readCmd.Flags().UintVarP(&readOpts.Count, "count", "n", 1, "the number of conversions to read")
	readCmd.Flags().DurationVarP(&readOpts.Poll, "poll", "p", time.Millisecond, "the period between polls for a conversion")
	readCmd.Flags().BoolVarP(&readOpts.Raw, "raw", "r", false, "display the raw 24-bit value in hex")
	rootCmd.AddCommand(readCmd)
}

var (
	readCmd = &cobra.Command{
		Use:                   "read [flags]",
		Short:                 "Read conversions from the HX711",
		Long:                  `Read a number of conversions from the HX711 and print them to standard output.`,
		Args:                  cobra.NoArgs,
		RunE:                  read,
		DisableFlagsInUseLine: true,
	}
	readOpts = struct {
		Count uint
		Poll  time.Duration
		Raw   bool
	}{}
)

func read(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	d, err := openDevice(log)
	if err != nil {
		return err
	}
	defer d.Close()
	for i := uint(0); i < readOpts.Count; i++ {
		v, err := poll(d, readOpts.Poll, rootOpts.Timeout)
		if err != nil {
			return fmt.Errorf("error reading HX711: %s", err)
		}
		if readOpts.Raw {
			fmt.Printf("0x%06x\n", uint32(v)&0xffffff)
		} else {
			fmt.Println(v)
		}
	}
	return nil
}

// poll retrieves a conversion, giving up after the timeout.
func poll(h *hx711.HX711, period, timeout time.Duration) (int32, error) {
	deadline := time.Now().Add(timeout)
	for {
		v, err := h.Retrieve()
		if err != hx711.ErrWouldBlock {
			return v, err
		}
		if time.Now().After(deadline) {
			return 0, errTimeout
		}
		time.Sleep(period)
	}
}
