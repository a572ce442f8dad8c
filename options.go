package hbcurve

// An Option configures a plot. Applying an option returns another option
// that restores the previous value.
type Option func(p *Plot) Option

// Domain sets the PaO2 interval covered by both curves. By default, the
// domain is [0, 110] mmHg.
func Domain(min, max float64) Option {
	return func(p *Plot) Option {
		oldMin, oldMax := p.min, p.max
		p.min, p.max = min, max
		return Domain(oldMin, oldMax)
	}
}

// Steps sets the number of intervals the domain is split into. Each curve
// has steps+1 points. By default, there is one step per mmHg of the default
// domain (110).
func Steps(n int) Option {
	return func(p *Plot) Option {
		old := p.steps
		p.steps = n
		return Steps(old)
	}
}

// A DeviceOption configures a Device.
type DeviceOption func(d *Device) DeviceOption

// OnBus can be used to specify I²C bus name
// ("/dev/i2c-2", "I2C2", "2"). By default, the bus name is "", which selects
// the first available bus.
func OnBus(name string) DeviceOption {
	return func(d *Device) DeviceOption {
		old := d.bus
		d.bus = name
		return OnBus(old)
	}
}

// OnAddr can be used to specify alternative I²C address.
// By default, the address is 0x57.
func OnAddr(addr uint16) DeviceOption {
	return func(d *Device) DeviceOption {
		old := d.addr
		d.addr = addr
		return OnAddr(old)
	}
}

// Patient sets the physiological inputs used to place a measured SpO2 on
// the patient curve. By default, the Standard inputs are used.
func Patient(in Inputs) DeviceOption {
	return func(d *Device) DeviceOption {
		old := d.patient
		d.patient = in
		return Patient(old)
	}
}
