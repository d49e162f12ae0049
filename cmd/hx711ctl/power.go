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
)

func init() {
	powerCmd.Flags().DurationVarP(&powerOpts.Time, "time", "t", 0, "hold the HX711 down for a period of time then exit")
	powerCmd.SetHelpTemplate(powerCmd.HelpTemplate() + extendedPowerHelp)
	rootCmd.AddCommand(powerCmd)
}

var extendedPowerHelp = `
States:
  up:           wake the HX711 from power down
  down:         power down the HX711 and hold it down until a SIGINT or
                SIGTERM, or the time expires

The HX711 is held down by the PD_SCK line being held high, and it is not
defined what level the line takes once hx711ctl exits.
`

var (
	powerCmd = &cobra.Command{
		Use:                   "power [flags] <up|down>",
		Short:                 "Power the HX711 up or down",
		Long:                  `Wake the HX711 from power down, or power it down.`,
		Args:                  cobra.ExactArgs(1),
		ValidArgs:             []string{"up", "down"},
		RunE:                  power,
		DisableFlagsInUseLine: true,
	}
	powerOpts = struct {
		Time time.Duration
	}{}
)

func power(cmd *cobra.Command, args []string) error {
	if args[0] != "up" && args[0] != "down" {
		return fmt.Errorf("unknown power state '%s'", args[0])
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	// the reset in openDevice wakes the HX711 if it is down.
	d, err := openDevice(log)
	if err != nil {
		return err
	}
	defer d.Close()
	if args[0] == "up" {
		if err = d.Enable(); err != nil {
			return fmt.Errorf("error powering up HX711: %s", err)
		}
		return nil
	}
	if err = d.Disable(); err != nil {
		return fmt.Errorf("error powering down HX711: %s", err)
	}
	powerWait()
	return nil
}

func powerWait() {
	sigdone := make(chan os.Signal, 1)
	signal.Notify(sigdone, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigdone)
	var timeout <-chan time.Time
	if powerOpts.Time > 0 {
		timeout = time.After(powerOpts.Time)
	}
	select {
	case <-timeout:
	case <-sigdone:
	}
}
