//go:build tinygo

//go:generate tinygo flash -target=xiao

// Bridge firmware for the temperature monitor. It answers one request per
// line on the UART:
//
//	A<ch>  -> A<ch>,<code>         MCP3208 conversion of channel ch
//	N      -> N,<count>            one-wire search, returns the device count
//	R<i>   -> R<i>,<16 hex>        one-wire ROM code
//	T<i>   -> T<i>,<celsius>       last one-wire conversion
//	other  -> E,<request>,<reason>
package main

import (
	"machine"
	"strconv"
	"time"

	"tinygo.org/x/drivers/ds18b20"
	"tinygo.org/x/drivers/onewire"
)

var (
	uart = machine.UART0

	// Serial buffer for reading lines
	lineBuffer [LINE_BUFFER]byte
	linePos    int
	overflow   bool

	// One-wire bus state
	bus         onewire.Device
	thermometer ds18b20.Device
	romIDs      [][]uint8
	temps       [ONEWIRE_MAX_DEVICES]int32 // millicelsius
	tempValid   [ONEWIRE_MAX_DEVICES]bool
	converting  bool
	lastConvert time.Time
)

func main() {
	PIN_MCP3208_CS.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_MCP3208_DOUT.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_MCP3208_DIN.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_MCP3208_CLK.Configure(machine.PinConfig{Mode: machine.PinOutput})

	// converter deselected until the first request
	PIN_MCP3208_CS.High()
	PIN_MCP3208_DOUT.Low()
	PIN_MCP3208_CLK.Low()

	bus = onewire.New(PIN_ONEWIRE)
	bus.Configure(onewire.Config{})
	thermometer = ds18b20.New(&bus)
	searchBus()

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	for {
		processSerial()
		updateTemperatures()
		time.Sleep(100 * time.Microsecond)
	}
}

func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if overflow {
				// the request tag is lost, so the host cannot match this line
				print("E,,line too long\n")
			} else if linePos > 0 {
				handleRequest(lineBuffer[:linePos])
			}
			linePos = 0
			overflow = false
			continue
		}

		if linePos < len(lineBuffer) {
			lineBuffer[linePos] = data
			linePos++
		} else {
			overflow = true
		}
	}
}

func handleRequest(req []byte) {
	op := req[0]
	arg, ok := parseIndex(req[1:])

	switch op {
	case 'A':
		if !ok || arg >= NTC_CHANNELS {
			printError(req, "invalid channel")
			return
		}
		code := readMCP3208(arg)
		print("A", arg, ",", code, "\n")
	case 'N':
		if len(req) != 1 {
			printError(req, "invalid request")
			return
		}
		searchBus()
		print("N,", len(romIDs), "\n")
	case 'R', 'T':
		if !ok {
			printError(req, "invalid index")
			return
		}
		if arg >= len(romIDs) {
			printError(req, "no such device")
			return
		}
		if op == 'R' {
			print("R", arg, ",", hexROM(romIDs[arg]), "\n")
			return
		}
		if !tempValid[arg] {
			printError(req, "no conversion yet")
			return
		}
		print("T", arg, ",", strconv.FormatFloat(float64(temps[arg])/1000, 'f', 3, 32), "\n")
	default:
		printError(req, "unknown request")
	}
}

// printError answers req with a failure line echoing the request.
func printError(req []byte, reason string) {
	print("E,", string(req), ",", reason, "\n")
}

// parseIndex parses a small decimal index.
func parseIndex(b []byte) (int, bool) {
	if len(b) == 0 || len(b) > 2 {
		return 0, false
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// searchBus enumerates the one-wire bus and drops cached conversions.
func searchBus() {
	found, err := bus.Search(onewire.SEARCH_ROM)
	if err != nil {
		// no presence pulse: empty bus
		found = nil
	}
	if len(found) > ONEWIRE_MAX_DEVICES {
		found = found[:ONEWIRE_MAX_DEVICES]
	}
	romIDs = found
	for i := range tempValid {
		tempValid[i] = false
	}
	converting = false
	lastConvert = time.Time{}
}

// updateTemperatures starts a conversion on every device each
// CONVERSION_INTERVAL and collects the results once CONVERSION_TIME passed.
// Requests are answered from the cache so a T request never waits on the bus.
func updateTemperatures() {
	if len(romIDs) == 0 {
		return
	}

	elapsed := time.Since(lastConvert)
	if converting {
		if elapsed < CONVERSION_TIME {
			return
		}
		for i, rom := range romIDs {
			t, err := thermometer.ReadTemperature(rom)
			tempValid[i] = err == nil
			if err == nil {
				temps[i] = t
			}
		}
		converting = false
		return
	}

	if !lastConvert.IsZero() && elapsed < CONVERSION_INTERVAL {
		return
	}
	for _, rom := range romIDs {
		thermometer.RequestTemperature(rom)
	}
	converting = true
	lastConvert = time.Now()
}

const hexDigits = "0123456789ABCDEF"

// hexROM formats a ROM code as 16 upper case hex digits, family code first.
func hexROM(rom []uint8) string {
	var b [16]byte
	for i := 0; i < len(rom) && i < 8; i++ {
		b[2*i] = hexDigits[rom[i]>>4]
		b[2*i+1] = hexDigits[rom[i]&0x0F]
	}
	return string(b[:])
}

// readMCP3208 performs one single-ended conversion of channel.
// Command: start bit, single-ended mode, 3 channel bits; then one sample and
// one null bit, followed by 12 data bits MSB first.
func readMCP3208(channel int) uint16 {
	command := uint8(0b11000000) | uint8(channel)<<3

	PIN_MCP3208_CS.Low()
	for i := 7; i >= 3; i-- {
		PIN_MCP3208_DOUT.Set(command&(1<<i) != 0)
		clockPulse()
	}

	// skip the sample and null bits
	clockPulse()
	clockPulse()

	var code uint16
	for i := 11; i >= 0; i-- {
		if PIN_MCP3208_DIN.Get() {
			code |= 1 << i
		}
		clockPulse()
	}
	PIN_MCP3208_CS.High()
	return code
}

func clockPulse() {
	PIN_MCP3208_CLK.High()
	time.Sleep(time.Microsecond)
	PIN_MCP3208_CLK.Low()
	time.Sleep(time.Microsecond)
}
