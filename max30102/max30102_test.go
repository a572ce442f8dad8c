package max30102

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a register file that behaves like an idle MAX30102: reset and
// temperature conversions complete as soon as they are requested and the
// FIFO holds the queued samples.
type fakeConn struct {
	regs   map[byte]byte
	fifo   [][]byte
	writes [][2]byte
	fail   error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		regs: map[byte]byte{
			RegPartID: PartID,
			RegRevID:  0x03,
			IntStat1:  AlmostFull | NewFIFOData,
		},
	}
}

func (f *fakeConn) queue(samples ...[]byte) {
	f.fifo = append(f.fifo, samples...)
	f.regs[FIFORdPtr] = 0
	f.regs[FIFOWrPtr] = byte(len(f.fifo))
}

func (f *fakeConn) Tx(w, r []byte) error {
	if f.fail != nil {
		return f.fail
	}
	reg := w[0]
	if reg == FIFOData {
		if len(f.fifo) == 0 {
			return errors.New("fifo empty")
		}
		copy(r, f.fifo[0])
		f.fifo = f.fifo[1:]
		f.regs[FIFORdPtr]++
		return nil
	}
	r[0] = f.regs[reg]
	return nil
}

func (f *fakeConn) Write(b []byte) (int, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	reg, v := b[0], b[1]
	f.writes = append(f.writes, [2]byte{reg, v})
	switch reg {
	case ModeCfg:
		v &^= ResetControl
	case TempCfg:
		v &^= TempEna
	}
	f.regs[reg] = v
	return len(b), nil
}

func TestNewDevice(t *testing.T) {
	f := newFakeConn()
	d, err := newDevice(f)
	require.NoError(t, err)

	rev, err := d.RevID()
	require.NoError(t, err)
	assert.Equal(t, byte(0x03), rev)

	assert.Equal(t, ModeSpO2, f.regs[ModeCfg]&^modeMask)
	assert.Equal(t, byte(14), f.regs[Led1PA])
	assert.Equal(t, byte(14), f.regs[Led2PA])
	assert.Equal(t, byte(SR100|PW411), f.regs[SpO2Cfg])
	assert.Equal(t, AlmostFull|NewFIFOData, f.regs[IntEna1])
}

func TestNewDeviceWrongPart(t *testing.T) {
	f := newFakeConn()
	f.regs[RegPartID] = 0x11

	_, err := newDevice(f)
	assert.True(t, errors.Is(err, ErrNotDevice))
}

func TestTemperature(t *testing.T) {
	f := newFakeConn()
	d := &Device{dev: f}

	f.regs[TempInt] = 0x1E // 30
	f.regs[TempFrac] = 0x04
	temp, err := d.Temperature()
	require.NoError(t, err)
	assert.Equal(t, 30.25, temp)

	f.regs[TempInt] = 0xFE // -2
	f.regs[TempFrac] = 0x00
	temp, err = d.Temperature()
	require.NoError(t, err)
	assert.Equal(t, -2.0, temp)
}

func TestIRRedBatch(t *testing.T) {
	f := newFakeConn()
	d := &Device{dev: f}

	f.queue(
		[]byte{0x03, 0xFF, 0xFF, 0x00, 0x00, 0x00},
		[]byte{0x02, 0x00, 0x00, 0x01, 0x00, 0x00},
	)

	ir, red, err := d.IRRedBatch()
	require.NoError(t, err)
	require.Len(t, ir, 2)
	require.Len(t, red, 2)

	assert.Equal(t, 1.0, red[0])
	assert.Equal(t, 0.0, ir[0])
	assert.InDelta(t, 0.5, red[1], 1e-5)
	assert.InDelta(t, 0.25, ir[1], 1e-5)
}

func TestWaitUntilTimeout(t *testing.T) {
	f := newFakeConn()
	f.regs[IntStat1] = 0
	d := &Device{dev: f}

	err := d.waitUntil(IntStat1, AlmostFull, true)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestOptionsRestore(t *testing.T) {
	f := newFakeConn()
	d := &Device{dev: f}
	f.regs[SpO2Cfg] = byte(SR50 | PW69)

	restore, err := d.Options(SampleRate(SR400))
	require.NoError(t, err)
	assert.Equal(t, byte(SR400|PW69), f.regs[SpO2Cfg])

	_, err = d.Options(restore)
	require.NoError(t, err)
	assert.Equal(t, byte(SR50|PW69), f.regs[SpO2Cfg])
}

func TestPulseAmpClamp(t *testing.T) {
	f := newFakeConn()
	d := &Device{dev: f}

	_, err := d.Options(RedPulseAmp(100), IRPulseAmp(-1))
	require.NoError(t, err)
	assert.Equal(t, byte(255), f.regs[Led1PA])
	assert.Equal(t, byte(0), f.regs[Led2PA])
}

func TestShutdownStartup(t *testing.T) {
	f := newFakeConn()
	d := &Device{dev: f}
	f.regs[ModeCfg] = ModeSpO2

	require.NoError(t, d.Shutdown())
	assert.Equal(t, modeSHDN|ModeSpO2, f.regs[ModeCfg])

	require.NoError(t, d.Startup())
	assert.Equal(t, ModeSpO2, f.regs[ModeCfg])
}

func TestReadError(t *testing.T) {
	f := newFakeConn()
	f.fail = errors.New("bus down")
	d := &Device{dev: f}

	_, err := d.Read(RegRevID)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, f.fail))
}
