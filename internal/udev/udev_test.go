// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package udev_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warthog618/hx711/internal/udev"
)

func TestDevName(t *testing.T) {
	m := udev.DevName("gpiochip1")
	r := regexp.MustCompile(m["DEVNAME"])
	assert.True(t, r.MatchString("/dev/gpiochip1"))
	assert.True(t, r.MatchString("gpiochip1"))
	assert.False(t, r.MatchString("/dev/gpiochip10"))
	assert.False(t, r.MatchString("/dev/xgpiochip1"))
}

func TestDevPath(t *testing.T) {
	m := udev.DevPath("/devices/platform/gpio-mockup")
	assert.Equal(t, map[string]string{"DEVPATH": "/devices/platform/gpio-mockup"}, m)
}

func TestMonitorClose(t *testing.T) {
	m, err := udev.NewMonitor(udev.DevName("gpiochip99"))
	if err != nil {
		t.Skip("netlink not available:", err)
	}
	done := make(chan struct{})
	go func() {
		m.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Close blocked")
	}
}
