// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/warthog618/gpiod"
	"github.com/warthog618/hx711/internal/udev"
)

// waitChip waits for the named GPIO chip to be added, such as when a USB
// GPIO expander is plugged in.
func waitChip(name string, timeout time.Duration) error {
	if gpiod.IsChip(name) == nil {
		return nil
	}
	um, err := udev.NewMonitor(udev.DevName(filepath.Base(name)))
	if err != nil {
		return err
	}
	defer um.Close()
	// may have been added before the monitor started
	if gpiod.IsChip(name) == nil {
		return nil
	}
	select {
	case <-um.Events:
		return nil
	case err := <-um.Errors:
		return fmt.Errorf("udev monitor failed: %s", err)
	case <-time.After(timeout):
		return errors.New("timeout waiting for " + name)
	}
}
