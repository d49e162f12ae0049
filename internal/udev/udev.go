// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

// Package udev watches for GPIO chips being added to the system.
package udev

import (
	"fmt"
	"regexp"

	"github.com/pilebones/go-udev/netlink"
)

// Monitor reports GPIO chips added to the system.
type Monitor struct {
	conn *netlink.UEventConn
	// Events receives the add events matched by the Monitor.
	Events <-chan netlink.UEvent
	// Errors receives errors reading or parsing events.
	Errors <-chan error
	quit   chan struct{}
}

// DevName returns a matcher for a chip with the given device name, e.g.
// "gpiochip0".
func DevName(chip string) map[string]string {
	return map[string]string{"DEVNAME": "(^|/)" + regexp.QuoteMeta(chip) + "$"}
}

// DevPath returns a matcher for chips with device paths matching the
// pattern.
func DevPath(pattern string) map[string]string {
	return map[string]string{"DEVPATH": pattern}
}

// NewMonitor starts monitoring for gpio subsystem add events with
// environment fields matching env.
//
// The Monitor holds at most one event and one error that have not been
// received, so Close does not block on the netlink reader.
func NewMonitor(env map[string]string) (*Monitor, error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, fmt.Errorf("unable to connect to Netlink Kobject UEvent socket: %w", err)
	}
	action := "add"
	matchEnv := map[string]string{"SUBSYSTEM": "gpio"}
	for k, v := range env {
		matchEnv[k] = v
	}
	matcher := &netlink.RuleDefinition{Action: &action, Env: matchEnv}
	queue := make(chan netlink.UEvent, 1)
	errs := make(chan error, 1)
	quit := conn.Monitor(queue, errs, matcher)
	return &Monitor{conn: conn, Events: queue, Errors: errs, quit: quit}, nil
}

// Close stops the Monitor.
func (m *Monitor) Close() {
	// release a reader blocked on a full queue so it can see the quit.
	select {
	case <-m.Events:
	default:
	}
	select {
	case <-m.Errors:
	default:
	}
	m.quit <- struct{}{}
	m.conn.Close()
}
