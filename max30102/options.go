package max30102

import "fmt"

// Option defines a functional option for the device. Applying an option
// returns the option that restores the previous setting.
type Option func(d *Device) (Option, error)

// Options set different configuration options and returns the previous value
// of the last option passed.
func (d *Device) Options(options ...Option) (Option, error) {
	var old Option
	var err error
	for _, opt := range options {
		old, err = opt(d)
		if err != nil {
			return nil, err
		}
	}

	return old, nil
}

// config keeps the bits of reg selected by mask, sets flag and returns the
// replaced bits.
func (d *Device) config(reg, mask, flag byte) (byte, error) {
	cfg, err := d.Read(reg)
	if err != nil {
		return 0, fmt.Errorf("could not get %#x from %#x: %w", mask, reg, err)
	}
	old := cfg &^ mask
	cfg &= mask
	cfg |= flag
	if err := d.Write(reg, cfg); err != nil {
		return 0, fmt.Errorf("could not set %#x in %#x: %w", flag, reg, err)
	}

	return old, nil
}

// field returns an option writing value into the bits of reg outside keep.
func field(what string, reg, keep, value byte, restore func(old byte) Option) Option {
	return func(d *Device) (Option, error) {
		old, err := d.config(reg, keep, value)
		if err != nil {
			return nil, fmt.Errorf("max30102: could not configure %s: %w", what, err)
		}
		return restore(old), nil
	}
}

// Mode sets the operation mode of the device and clears the FIFO pointers.
func Mode(mode byte) Option {
	return func(d *Device) (Option, error) {
		old, err := d.config(ModeCfg, modeMask, mode)
		if err != nil {
			return nil, fmt.Errorf("max30102: could not configure mode: %w", err)
		}

		for _, reg := range []byte{FIFOWrPtr, OvfCount, FIFORdPtr} {
			if err = d.Write(reg, 0); err != nil {
				return nil, fmt.Errorf("max30102: could not configure mode: %w", err)
			}
		}

		return Mode(old), nil
	}
}

// RedPulseAmp sets the pulse amplitude of the red LED. It accepts values
// from 0.0 to 51.0 mA and the value is rounded down to the nearest multiple of 0.2.
func RedPulseAmp(current float64) Option {
	return field("red LED pulse amplitude", Led1PA, 0, amplitude(current), func(old byte) Option {
		return RedPulseAmp(float64(old) / 5)
	})
}

// IRPulseAmp sets the pulse amplitude of the IR LED. It accepts values
// from 0.0 to 51.0 mA and the value is rounded down to the nearest multiple of 0.2.
func IRPulseAmp(current float64) Option {
	return field("IR LED pulse amplitude", Led2PA, 0, amplitude(current), func(old byte) Option {
		return IRPulseAmp(float64(old) / 5)
	})
}

func amplitude(current float64) byte {
	if current > 51 {
		current = 51
	}
	if current < 0 {
		current = 0
	}
	return byte(current * 5)
}

// PulseWidth sets the pulse width of the device.
func PulseWidth(pw byte) Option {
	return field("pulse width", SpO2Cfg, pwMask, pw, PulseWidth)
}

// SampleRate sets the SpO2 sample rate control of the device.
func SampleRate(sr byte) Option {
	return field("sample rate", SpO2Cfg, srMask, sr, SampleRate)
}

// InterruptEnable enables interrupts.
func InterruptEnable(i byte) Option {
	return field("interrupt flags", IntEna1, ^i, i, InterruptEnable)
}

// AlmostFullValue sets when the AlmostFull interrupt should be triggered. It
// can take values from 0 to 15.
func AlmostFullValue(left byte) Option {
	left &= ^fifoFullMask
	return field("almost full value", FIFOCfg, fifoFullMask, left, AlmostFullValue)
}
