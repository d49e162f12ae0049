// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

// Package gpiomockup provides GPIO chips using the Linux gpio-mockup kernel
// module, so the character device pins can be tested without hardware.
//
// Loading the module requires root.
package gpiomockup

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"
	"github.com/warthog618/hx711/internal/udev"
	"golang.org/x/sys/unix"
)

// Mockup is the set of chips provided by the gpio-mockup module.
type Mockup struct {
	mu sync.Mutex
	cc []Chip
}

// Chip is a single mocked GPIO chip.
type Chip struct {
	// The device name, e.g. "gpiochip0".
	Name      string
	Lines     int
	DevPath   string
	DbgfsPath string
}

const debugfs = "/sys/kernel/debug/gpio-mockup"

// New loads the gpio-mockup module providing a chip for each entry in lines,
// with that number of lines.
//
// Any gpio-mockup module already loaded is unloaded first, so only one
// Mockup may exist at a time.
func New(lines ...int) (*Mockup, error) {
	if len(lines) == 0 {
		return nil, unix.EINVAL
	}
	if err := IsSupported(); err != nil {
		return nil, err
	}
	exec.Command("rmmod", "gpio-mockup").Run()

	ranges := "gpio_mockup_ranges="
	for i, l := range lines {
		if i > 0 {
			ranges += ","
		}
		ranges += fmt.Sprintf("-1,%d", l)
	}
	um, err := udev.NewMonitor(udev.DevPath(`/devices/platform/gpio-mockup\.\d+/gpiochip\d+`))
	if err != nil {
		return nil, fmt.Errorf("failed to start udev monitor: %w", err)
	}
	defer um.Close()

	if err = exec.Command("modprobe", "gpio-mockup", ranges).Run(); err != nil {
		return nil, fmt.Errorf("failed to load gpio-mockup: %w", err)
	}
	if err = unix.Access(debugfs, unix.R_OK|unix.W_OK); err != nil {
		return nil, err
	}
	evts := make([]netlink.UEvent, len(lines))
	for i := range evts {
		select {
		case evts[i] = <-um.Events:
		case err = <-um.Errors:
			return nil, fmt.Errorf("udev monitor failed: %w", err)
		case <-time.After(time.Second):
			return nil, errors.New("timeout waiting for udev events")
		}
	}
	cc, err := chips(evts, lines)
	if err != nil {
		return nil, err
	}
	return &Mockup{cc: cc}, nil
}

// chips maps the add events to chips, in device order.
func chips(evts []netlink.UEvent, lines []int) ([]Chip, error) {
	sort.Slice(evts, func(i, j int) bool {
		return evts[i].Env["DEVNAME"] < evts[j].Env["DEVNAME"]
	})
	cc := make([]Chip, len(lines))
	for i, l := range lines {
		devpath := evts[i].Env["DEVNAME"]
		if !strings.HasPrefix(devpath, "/dev/") {
			devpath = "/dev/" + devpath
		}
		name := devpath[len("/dev/"):]
		var num int
		if _, err := fmt.Sscanf(name, "gpiochip%d", &num); err != nil {
			return nil, fmt.Errorf("failed to parse chip num: %w", err)
		}
		cc[i] = Chip{
			Name:      name,
			Lines:     l,
			DevPath:   devpath,
			DbgfsPath: fmt.Sprintf("%s/gpiochip%d/", debugfs, num),
		}
	}
	return cc, nil
}

// Chip returns the mocked chip indicated by num.
func (m *Mockup) Chip(num int) (*Chip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if num < 0 || num >= len(m.cc) {
		return nil, ErrorIndexRange{num, len(m.cc)}
	}
	return &m.cc[num], nil
}

// Close unloads the gpio-mockup module.
func (m *Mockup) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cc = nil
	return exec.Command("rmmod", "gpio-mockup").Run()
}

// Value returns the level the line is driven to by its requester.
func (c *Chip) Value(line int) (int, error) {
	if line < 0 || line >= c.Lines {
		return 0, ErrorIndexRange{line, c.Lines}
	}
	v, err := os.ReadFile(fmt.Sprintf("%s%d", c.DbgfsPath, line))
	if err != nil {
		return 0, err
	}
	if len(v) > 0 && v[0] == '1' {
		return 1, nil
	}
	return 0, nil
}

// SetValue pulls the line to the level, as a device driving an input
// would, e.g. the HX711 DOUT.
func (c *Chip) SetValue(line int, value int) error {
	if line < 0 || line >= c.Lines {
		return ErrorIndexRange{line, c.Lines}
	}
	v := []byte{'0'}
	if value != 0 {
		v[0] = '1'
	}
	return os.WriteFile(fmt.Sprintf("%s%d", c.DbgfsPath, line), v, 0)
}

// IsSupported returns an error if the running kernel cannot support the
// mockup.
func IsSupported() error {
	return CheckKernelVersion(Version{5, 1, 0})
}

// KernelVersion returns the running kernel version.
func KernelVersion() (Version, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return nil, err
	}
	return ParseVersion(string(bytes.TrimRight(uts.Release[:], "\x00")))
}

var versionRegexp = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)

// ParseVersion extracts the major, minor and patch from a kernel release
// string, e.g. "5.10.0-rpi".
func ParseVersion(release string) (Version, error) {
	vers := versionRegexp.FindStringSubmatch(release)
	if len(vers) != 4 {
		return nil, fmt.Errorf("can't parse kernel release: %s", release)
	}
	v := Version{0, 0, 0}
	for i, vf := range vers[1:] {
		vfi, err := strconv.ParseUint(vf, 10, 8)
		if err != nil {
			return nil, err
		}
		v[i] = byte(vfi)
	}
	return v, nil
}

// CheckKernelVersion returns an error if the kernel version is less than
// min.
func CheckKernelVersion(min Version) error {
	kv, err := KernelVersion()
	if err != nil {
		return err
	}
	if bytes.Compare(kv, min) < 0 {
		return ErrorBadVersion{Need: min, Have: kv}
	}
	return nil
}

// Version is a kernel version as Major, Minor, Patch.
type Version []byte

func (v Version) String() string {
	if len(v) == 0 {
		return ""
	}
	s := strconv.Itoa(int(v[0]))
	for _, f := range v[1:] {
		s += "." + strconv.Itoa(int(f))
	}
	return s
}

// ErrorIndexRange indicates the requested chip or line does not exist.
type ErrorIndexRange struct {
	Req   int
	Limit int
}

func (e ErrorIndexRange) Error() string {
	return fmt.Sprintf("index out of range - got %d, limit is %d", e.Req, e.Limit)
}

// ErrorBadVersion indicates the kernel version is insufficient.
type ErrorBadVersion struct {
	Need Version
	Have Version
}

func (e ErrorBadVersion) Error() string {
	return fmt.Sprintf("require kernel %s or later, but running %s", e.Need, e.Have)
}
