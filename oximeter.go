package hbcurve

import (
	"errors"
	"fmt"

	"github.com/cgxeiji/hbcurve/max30102"
)

var (
	// ErrWrongDevice is returned when trying to convert a Device to the
	// underlying *max30102.Device and the sensor is something else.
	ErrWrongDevice = errors.New("wrong device")
	// ErrNotDetected is returned when trying to read a saturation and
	// nothing usable is detected on the sensor (e.g. no finger is placed on
	// the sensor when the function is called).
	ErrNotDetected = errors.New("nothing detected on the sensor")
)

// maxSpO2 caps the measured saturation so it stays on the curve.
const maxSpO2 = 99.9

// Reading is one estimate taken by a Device.
type Reading struct {
	// SpO2 is the smoothed measured saturation in %.
	SpO2 float64 `json:"spo2"`
	// PaO2 is the pressure in mmHg that gives SpO2 on the patient curve.
	PaO2 float64 `json:"pao2"`
	// Shift is the shift factor of the patient inputs.
	Shift float64 `json:"shift"`
	// DieTemperature is the temperature of the sensor die in °C. It is not
	// the body temperature.
	DieTemperature float64 `json:"die_temperature"`
}

// Device estimates PaO2 from the saturation measured by a MAX30102 pulse
// oximeter and the physiological inputs of the patient.
type Device struct {
	sensor sensor
	redLED *tSeries
	irLED  *tSeries
	spo2   movingAverage

	bus     string
	addr    uint16
	patient Inputs

	// PartID is the byte part ID as set by the manufacturer.
	PartID byte
	RevID  byte
}

type sensor interface {
	Temperature() (float64, error)
	RevID() (byte, error)
	IRRedBatch() ([]float64, []float64, error)

	Close()
}

// New opens the MAX30102 on the configured bus and returns a device that
// estimates PaO2 for the Standard inputs unless the Patient option is set.
func New(opts ...DeviceOption) (*Device, error) {
	d := &Device{patient: Standard}
	for _, opt := range opts {
		opt(d)
	}

	s, err := max30102.New(d.bus, d.addr)
	if err != nil {
		return nil, err
	}
	if err := s.Calibrate(); err != nil {
		s.Close()
		return nil, err
	}

	if err := d.attach(s); err != nil {
		s.Close()
		return nil, err
	}
	d.PartID = max30102.PartID

	return d, nil
}

func (d *Device) attach(s sensor) error {
	if _, err := d.patient.Shift(); err != nil {
		return err
	}

	rev, err := s.RevID()
	if err != nil {
		return fmt.Errorf("hbcurve: could not get revision ID: %w", err)
	}

	d.sensor = s
	d.RevID = rev
	d.redLED = newTSeries(bufferSize)
	d.irLED = newTSeries(bufferSize)
	return nil
}

// Close closes the device and cleans after itself.
func (d *Device) Close() {
	d.sensor.Close()
}

// Patient returns the inputs the device uses for its estimates.
func (d *Device) Patient() Inputs {
	return d.patient
}

// Options sets different configuration options and returns the option that
// restores the previous value of the last option passed.
func (d *Device) Options(opts ...DeviceOption) DeviceOption {
	var old DeviceOption
	for _, opt := range opts {
		old = opt(d)
	}
	return old
}

// Read takes a batch of samples and returns the current estimate. If no
// contact is detected on the sensor, it returns ErrNotDetected and the
// smoothed saturation starts over.
func (d *Device) Read() (Reading, error) {
	shift, err := d.patient.Shift()
	if err != nil {
		return Reading{}, err
	}

	spo2, err := d.spO2()
	if err != nil {
		d.spo2.reset()
		return Reading{}, err
	}
	d.spo2.add(spo2)

	pao2, err := PaO2(d.spo2.mean, shift)
	if err != nil {
		return Reading{}, fmt.Errorf("hbcurve: could not estimate PaO2: %w", err)
	}

	temp, err := d.sensor.Temperature()
	if err != nil {
		return Reading{}, fmt.Errorf("hbcurve: could not get temperature: %w", err)
	}

	return Reading{
		SpO2:           d.spo2.mean,
		PaO2:           pao2,
		Shift:          shift,
		DieTemperature: temp,
	}, nil
}

// spO2 returns the unsmoothed saturation of the buffered samples.
func (d *Device) spO2() (float64, error) {
	ir, red, err := d.sensor.IRRedBatch()
	if err != nil {
		return 0, fmt.Errorf("hbcurve: could not get LEDs: %w", err)
	}
	d.redLED.add(red...)
	d.irLED.add(ir...)

	if d.redLED.last() < threshold || d.irLED.last() < threshold {
		return 0, fmt.Errorf("hbcurve: could not get SpO2: %w", ErrNotDetected)
	}

	irACDC := d.irLED.acdc()
	if irACDC == 0 {
		return 0, fmt.Errorf("hbcurve: no pulse in IR signal: %w", ErrNotDetected)
	}
	r := d.redLED.acdc() / irACDC

	spo2 := 104 - 17*r
	if spo2 <= 0 {
		return 0, fmt.Errorf("hbcurve: R value %.3f out of range: %w", r, ErrNotDetected)
	}
	if spo2 > maxSpO2 {
		spo2 = maxSpO2
	}

	return spo2, nil
}

// ToMax30102 converts the device to a max30102 device to access low level
// functions. Check the package hbcurve/max30102 for detailed behavior.
func (d *Device) ToMax30102() (*max30102.Device, error) {
	device, ok := d.sensor.(*max30102.Device)
	if !ok {
		return nil, ErrWrongDevice
	}

	return device, nil
}
