package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/withmandala/go-log"

	"github.com/cgxeiji/hbcurve"
)

func TestMain(m *testing.M) {
	logger = log.New(os.Stderr)
	os.Exit(m.Run())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	require.NoError(t, cfg.validate())

	assert.Equal(t, hbcurve.Standard, cfg.Patient)
	assert.Equal(t, tomlConfigPlot{Min: 0, Max: 110, Steps: 110}, cfg.Plot)
	assert.Equal(t, formatCSV, cfg.Output.Format)
	assert.False(t, cfg.Sensor.Enabled)
	assert.Equal(t, tomlConfigMQTT{}, cfg.Mqtt)
}

func TestLoadConfigFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "hbcurve.toml")
	require.NoError(t, os.WriteFile(name, []byte(`
[patient]
temperature = 39.0
pco2 = 55.0

[plot]
steps = 22

[output]
format = "json"

[mqtt]
broker_host = "localhost"
broker_port = 1883

[influx]
hostname = "localhost"
port = 8086
database = "vitals"
`), 0o644))

	cfg, err := loadConfig(name)
	require.NoError(t, err)
	require.NoError(t, cfg.validate())

	assert.Equal(t, hbcurve.Inputs{Temperature: 39, PH: hbcurve.StdPH, PCO2: 55}, cfg.Patient)
	assert.Equal(t, tomlConfigPlot{Min: 0, Max: 110, Steps: 22}, cfg.Plot)
	assert.Equal(t, formatJSON, cfg.Output.Format)
	assert.Equal(t, "localhost", cfg.Mqtt.BrokerHost)
	assert.Equal(t, 1883, cfg.Mqtt.BrokerPort)
	assert.Equal(t, "hbcurve", cfg.Mqtt.TopicPrefix)
	assert.Equal(t, "vitals", cfg.Influx.Database)
	assert.Equal(t, "hbcurve", cfg.Influx.Measurement)
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Output.Format = "xml"
	assert.Error(t, cfg.validate())

	cfg = defaultConfig()
	cfg.Sensor.Enabled = true
	cfg.Sensor.PollRate = 0
	assert.Error(t, cfg.validate())
}

type recordingPublisher struct {
	plots    []*hbcurve.Plot
	readings []hbcurve.Reading
	closed   bool
}

func (r *recordingPublisher) PublishPlot(p *hbcurve.Plot) error {
	r.plots = append(r.plots, p)
	return nil
}

func (r *recordingPublisher) PublishReading(rd hbcurve.Reading) error {
	r.readings = append(r.readings, rd)
	return nil
}

func (r *recordingPublisher) Close() { r.closed = true }

func TestRun(t *testing.T) {
	cfg := defaultConfig()
	cfg.Patient = hbcurve.Inputs{Temperature: 38, PH: 7.35, PCO2: 45}
	cfg.Output.File = filepath.Join(t.TempDir(), "curve.csv")

	pub := &recordingPublisher{}
	require.NoError(t, run(cfg, pub))
	require.Len(t, pub.plots, 1)
	assert.Len(t, pub.plots[0].Patient, 111)

	b, err := os.ReadFile(cfg.Output.File)
	require.NoError(t, err)
	assert.Contains(t, string(b), "pao2,reference,patient\n0,0,0\n")
}

func TestRunInvalid(t *testing.T) {
	cfg := defaultConfig()
	cfg.Patient.PCO2 = 0
	err := run(cfg, &recordingPublisher{})
	assert.True(t, errors.Is(err, hbcurve.ErrInvalidInput))

	cfg = defaultConfig()
	cfg.Plot.Max = -1
	err = run(cfg, &recordingPublisher{})
	assert.True(t, errors.Is(err, hbcurve.ErrInvalidRange))
}

type fakeReader struct {
	readings []hbcurve.Reading
	errs     []error
	calls    int
}

func (f *fakeReader) Read() (hbcurve.Reading, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return hbcurve.Reading{}, f.errs[i]
	}
	return f.readings[i%len(f.readings)], nil
}

func TestReadLoopCount(t *testing.T) {
	dev := &fakeReader{
		readings: []hbcurve.Reading{{SpO2: 95, PaO2: 76, Shift: 1}},
		errs:     []error{hbcurve.ErrNotDetected},
	}
	pub := &recordingPublisher{}

	err := readLoop(context.Background(), dev, time.Millisecond, 2, pub)
	require.NoError(t, err)
	assert.Equal(t, 3, dev.calls)
	assert.Len(t, pub.readings, 2)
}

func TestReadLoopError(t *testing.T) {
	boom := errors.New("bus down")
	dev := &fakeReader{errs: []error{boom}}

	err := readLoop(context.Background(), dev, time.Millisecond, 0, &recordingPublisher{})
	assert.True(t, errors.Is(err, boom))
}

func TestReadLoopCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dev := &fakeReader{readings: []hbcurve.Reading{{SpO2: 97}}}
	pub := &recordingPublisher{}

	require.NoError(t, readLoop(ctx, dev, time.Hour, 0, pub))
	assert.Equal(t, 1, dev.calls)
	assert.Len(t, pub.readings, 1)
}
