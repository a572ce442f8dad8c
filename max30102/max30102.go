// Package max30102 drives the MAX30102 pulse oximeter over I²C.
package max30102

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

var (
	// ErrNotDevice is returned when the device part ID does not match a
	// MAX30102 signature (0x15).
	ErrNotDevice = errors.New("max30102: part ID does not match (0x15)")
	// ErrTimeout is returned when a status flag does not reach the expected
	// state after polling the register for a while.
	ErrTimeout = errors.New("max30102: timed out waiting for register")
)

// conn is the register transport. *i2c.Dev satisfies it.
type conn interface {
	Tx(w, r []byte) error
	Write(b []byte) (int, error)
}

// Device defines a MAX30102 device.
type Device struct {
	dev conn
	bus i2c.BusCloser

	irAmp  float64
	redAmp float64
}

// New returns a new MAX30102 device. By default, this sets the LED pulse
// amplitude to 2.8mA, with a pulse width of 411us and a sample rate of 100
// samples/s.
//
// Argument "busName" can be used to specify the exact bus to use ("/dev/i2c-2", "I2C2", "2").
// Argument "addr" can be used to specify alternative address if default (0x57) is unavailable and changed.
// If "busName" argument is specified as an empty string "" the first available bus will be used.
func New(busName string, addr uint16) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("max30102: could not initialize host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("max30102: could not open I2C bus: %w", err)
	}

	if addr == 0 {
		addr = Addr
	}

	d, err := newDevice(&i2c.Dev{Addr: addr, Bus: bus})
	if err != nil {
		bus.Close()
		return nil, err
	}
	d.bus = bus

	return d, nil
}

func newDevice(dev conn) (*Device, error) {
	d := &Device{dev: dev}

	part, err := d.Read(RegPartID)
	if err != nil {
		return nil, fmt.Errorf("max30102: could not get part ID: %w", err)
	}
	if part != PartID {
		return nil, ErrNotDevice
	}

	if err := d.Reset(); err != nil {
		return nil, err
	}
	if _, err := d.Options(
		RedPulseAmp(2.8),
		IRPulseAmp(2.8),
		PulseWidth(PW411),
		SampleRate(SR100),
		InterruptEnable(NewFIFOData|AlmostFull),
		AlmostFullValue(0),
		Mode(ModeSpO2),
	); err != nil {
		return nil, fmt.Errorf("max30102: could not initialize device: %w", err)
	}
	if err := d.drain(); err != nil {
		return nil, fmt.Errorf("max30102: could not empty FIFO: %w", err)
	}

	return d, nil
}

// Close shuts the device down and releases the bus.
func (d *Device) Close() {
	d.Shutdown()
	if d.bus != nil {
		d.bus.Close()
	}
}

// RevID returns the revision ID of the device.
func (d *Device) RevID() (byte, error) {
	rev, err := d.Read(RegRevID)
	if err != nil {
		return 0, fmt.Errorf("max30102: could not get revision ID: %w", err)
	}
	return rev, nil
}

// waitUntil polls reg until flag is set (set == true) or cleared.
func (d *Device) waitUntil(reg, flag byte, set bool) error {
	for i := 0; i < maxPolls; i++ {
		state, err := d.Read(reg)
		if err != nil {
			return fmt.Errorf("could not wait for %#x in %#x: %w", flag, reg, err)
		}
		if (state&flag != 0) == set {
			return nil
		}
	}
	return fmt.Errorf("flag %#x in %#x: %w", flag, reg, ErrTimeout)
}

// Temperature returns the current temperature of the device die in °C.
func (d *Device) Temperature() (float64, error) {
	if err := d.Write(TempCfg, TempEna); err != nil {
		return 0, fmt.Errorf("max30102: could not enable temperature: %w", err)
	}
	if err := d.waitUntil(TempCfg, TempEna, false); err != nil {
		return 0, fmt.Errorf("max30102: could not read temperature: %w", err)
	}

	i, err := d.Read(TempInt)
	if err != nil {
		return 0, fmt.Errorf("max30102: could not read integer part of temperature: %w", err)
	}

	f, err := d.Read(TempFrac)
	if err != nil {
		return 0, fmt.Errorf("max30102: could not read fractional part of temperature: %w", err)
	}

	return float64(int8(i)) + (float64(f&0x0F) * 0.0625), nil
}

// Read reads a single byte from a register.
func (d *Device) Read(reg byte) (byte, error) {
	b := make([]byte, 1)
	if err := d.dev.Tx([]byte{reg}, b); err != nil {
		return 0, fmt.Errorf("max30102: could not read byte: %w", err)
	}

	return b[0], nil
}

// ReadBytes read n bytes from a register.
func (d *Device) ReadBytes(reg byte, n int) ([]byte, error) {
	b := make([]byte, n)
	if err := d.dev.Tx([]byte{reg}, b); err != nil {
		return nil, fmt.Errorf("max30102: could not read %d bytes: %w", n, err)
	}

	return b, nil
}

// Write writes a byte to a register.
func (d *Device) Write(reg, data byte) error {
	n, err := d.dev.Write([]byte{reg, data})
	if err != nil {
		return err
	}
	n-- // remove register write
	if n != 1 {
		return fmt.Errorf("write: wrong number of bytes written: want %d, got %d", 1, n)
	}

	return nil
}

// Reset resets the device. All configurations, thresholds, and data registers
// are reset to their power-on state.
func (d *Device) Reset() error {
	if err := d.Write(ModeCfg, ResetControl); err != nil {
		return fmt.Errorf("max30102: could not reset: %w", err)
	}
	if err := d.waitUntil(ModeCfg, ResetControl, false); err != nil {
		return fmt.Errorf("max30102: could not reset: %w", err)
	}

	return nil
}

// IRRedBatch waits for the AlmostFull interrupt and returns the IR and red
// LED values waiting in the FIFO, normalized from 0.0 to 1.0. The amount of
// data returned can be configured with AlmostFullValue, which is set to 0 by
// default. Therefore, this function returns up to 32 samples by default.
func (d *Device) IRRedBatch() (ir, red []float64, err error) {
	if err := d.waitUntil(IntStat1, AlmostFull, true); err != nil {
		return nil, nil, fmt.Errorf("max30102: error waiting for almost full interrupt: %w", err)
	}

	n, err := d.available()
	if err != nil {
		return nil, nil, fmt.Errorf("max30102: error reading available data: %w", err)
	}

	ir = make([]float64, n)
	red = make([]float64, n)
	for i := 0; i < n; i++ {
		b, err := d.ReadBytes(FIFOData, sampleSize)
		if err != nil {
			return nil, nil, err
		}
		red[i] = sample(b[0:3])
		ir[i] = sample(b[3:6])
	}

	return ir, red, nil
}

// sample decodes one 18-bit left-justified FIFO value.
func sample(b []byte) float64 {
	const msbMask byte = 0b0000_0011
	return float64(int(b[0]&msbMask)<<16|int(b[1])<<8|int(b[2])) / maxADC
}

func (d *Device) drain() error {
	n, err := d.available()
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if _, err := d.ReadBytes(FIFOData, sampleSize); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) available() (int, error) {
	wr, err := d.Read(FIFOWrPtr)
	if err != nil {
		return 0, err
	}
	rd, err := d.Read(FIFORdPtr)
	if err != nil {
		return 0, err
	}

	if wr == rd {
		// Equal pointers mean either empty or full. A full FIFO starts
		// counting overflows.
		ovf, err := d.Read(OvfCount)
		if err != nil {
			return 0, err
		}
		if ovf == 0 {
			return 0, nil
		}
		return fifoDepth, nil
	}
	return (int(wr) + fifoDepth - int(rd)) % fifoDepth, nil
}

// Calibrate auto-calibrates the current of each LED, raising it in 0.5mA
// steps up to 5mA until the mean normalized reading reaches 0.4.
func (d *Device) Calibrate() error {
	var ir []float64
	var red []float64
	var err error

	irAmp := 0.0
	redAmp := 0.0

	if _, err = d.Options(
		IRPulseAmp(irAmp),
		RedPulseAmp(redAmp),
	); err != nil {
		return fmt.Errorf("max30102: could not calibrate sensor: %w", err)
	}

	for mean(ir) < 0.4 && irAmp < 5 {
		irAmp += 0.5
		if _, err = d.Options(IRPulseAmp(irAmp)); err != nil {
			return fmt.Errorf("max30102: could not calibrate sensor: %w", err)
		}
		time.Sleep(40 * time.Millisecond)

		if ir, red, err = d.IRRedBatch(); err != nil {
			return fmt.Errorf("max30102: could not calibrate sensor: %w", err)
		}
	}

	for mean(red) < 0.4 && redAmp < 5 {
		redAmp += 0.5
		if _, err = d.Options(RedPulseAmp(redAmp)); err != nil {
			return fmt.Errorf("max30102: could not calibrate sensor: %w", err)
		}
		time.Sleep(40 * time.Millisecond)

		if ir, red, err = d.IRRedBatch(); err != nil {
			return fmt.Errorf("max30102: could not calibrate sensor: %w", err)
		}
	}

	d.irAmp, d.redAmp = irAmp, redAmp
	return nil
}

// LEDCurrents returns the IR and red LED pulse amplitudes in mA chosen by
// the last calibration.
func (d *Device) LEDCurrents() (ir, red float64) {
	return d.irAmp, d.redAmp
}

func mean(a []float64) float64 {
	if len(a) == 0 {
		return 0
	}

	r := 0.0
	for _, v := range a {
		r += v
	}

	return r / float64(len(a))
}

// Shutdown sets the device into power-save mode.
func (d *Device) Shutdown() error {
	_, err := d.config(ModeCfg, ^modeSHDN, modeSHDN)

	return err
}

// Startup wakes the device from power-save mode.
func (d *Device) Startup() error {
	_, err := d.config(ModeCfg, ^modeSHDN, 0)

	return err
}
