//go:build tinygo

package main

import (
	"machine"
	"time"
)

const (
	// MCP3208 wiring, bit-banged on the SPI header pins
	PIN_MCP3208_CS   = machine.D3
	PIN_MCP3208_DOUT = machine.D10 // MOSI, command bits to the converter
	PIN_MCP3208_DIN  = machine.D9  // MISO, conversion result
	PIN_MCP3208_CLK  = machine.D8

	// One-wire bus with a 4.7k pull-up
	PIN_ONEWIRE = machine.D7

	// Number of thermistor channels wired to the converter
	NTC_CHANNELS = 4

	// DS18B20 sensors tracked on the bus; indexes are two digits
	ONEWIRE_MAX_DEVICES = 16

	// 12-bit conversion takes up to 750 ms
	CONVERSION_TIME     = 800 * time.Millisecond
	CONVERSION_INTERVAL = 2 * time.Second

	// Serial configuration
	// Longest response: "R15,28FF4C6A011703D2\n" = 21 bytes. Requests are
	// answered one at a time, so the rate is bounded by the host polling.
	UART_BAUD_RATE = 115200

	// Request line buffer, "T15" plus slack
	LINE_BUFFER = 16
)
