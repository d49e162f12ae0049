// SPDX-FileCopyrightText: 2019 Kent Gibson <warthog618@gmail.com>
//
// SPDX-License-Identifier: MIT

//go:build linux
// +build linux

package main

import (
	"fmt"
	"os"

	"github.com/warthog618/config"
	"github.com/warthog618/config/blob"
	"github.com/warthog618/config/blob/decoder/json"
	"github.com/warthog618/config/dict"
	"github.com/warthog618/config/env"
	"github.com/warthog618/config/pflag"
	"github.com/warthog618/gpiod/device/rpi"
	"github.com/warthog618/hx711"
	"github.com/warthog618/hx711/cdev"
	"github.com/warthog618/hx711/delay"
)

// This example reads conversions from a HX711 connected to the RPI by two
// lines - CLK (PD_SCK) and DOUT. The default pin assignments are defined in
// loadConfig, but can be altered via configuration (env, flag or config file).
// CLK is an output so do not run this example on a board where that pin
// serves other purposes.
func main() {
	cfg := loadConfig()
	mode, err := hx711.ParseMode(cfg.MustGet("mode").String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "hx711: %s\n", err)
		os.Exit(1)
	}
	d, err := delay.ByName(cfg.MustGet("delay").String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "hx711: %s\n", err)
		os.Exit(1)
	}
	p, err := cdev.New(
		cfg.MustGet("gpiochip").String(),
		cfg.MustGet("clk").Int(),
		cfg.MustGet("dout").Int())
	if err != nil {
		fmt.Fprintf(os.Stderr, "hx711: %s\n", err)
		os.Exit(1)
	}
	h, err := hx711.New(p.Clock, p.Data, d,
		hx711.WithMode(mode),
		hx711.WithPulseHold(uint32(cfg.MustGet("hold").Int())))
	if err != nil {
		p.Close()
		fmt.Fprintf(os.Stderr, "hx711: %s\n", err)
		os.Exit(1)
	}
	defer h.Close()
	count := cfg.MustGet("count").Int()
	for i := 0; i < count; i++ {
		v, err := h.Read()
		if err != nil {
			fmt.Printf("read error: %s\n", err)
			return
		}
		fmt.Printf("%s=%d (0x%06x)\n", h.Mode(), v, uint32(v)&0xffffff)
	}
	if cfg.MustGet("powerdown").Bool() {
		if err = h.Disable(); err != nil {
			fmt.Printf("power down error: %s\n", err)
		}
	}
}

func loadConfig() *config.Config {
	defaultConfig := map[string]interface{}{
		"gpiochip":  "gpiochip0",
		"clk":       rpi.J8p29,
		"dout":      rpi.J8p31,
		"mode":      "A128",
		"hold":      1,
		"delay":     "spin",
		"count":     10,
		"powerdown": false,
	}
	def := dict.New(dict.WithMap(defaultConfig))
	flags := []pflag.Flag{
		{Short: 'c', Name: "config-file"},
	}
	cfg := config.New(
		pflag.New(pflag.WithFlags(flags)),
		env.New(env.WithEnvPrefix("HX711_")),
		config.WithDefault(def))
	cfg.Append(
		blob.NewConfigFile(cfg, "config.file", "hx711.json", json.NewDecoder()))
	cfg = cfg.GetConfig("", config.WithMust())
	return cfg
}
