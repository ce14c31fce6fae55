package device

// ADC samples the analog thermistor channels.
type ADC interface {
	// Sample returns the 12-bit conversion result (0-4095) of channel.
	Sample(channel int) (uint16, error)
}

// OneWire enumerates and reads the digital sensors on the one-wire bus.
type OneWire interface {
	DeviceCount() (int, error)
	Address(index int) (Address, error)
	// Temperature returns the last conversion of the device at index in °C.
	Temperature(index int) (float32, error)
}

// Device is a connection to the sensor hardware (real or mocked).
type Device interface {
	ADC
	OneWire
	Connect() error
	Close() error
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
