// Command hbcurve samples the oxygen–hemoglobin dissociation curve of a
// patient against the standard curve and writes it as CSV or JSON. With a
// MAX30102 attached it also estimates PaO2 from the measured SpO2.
//
// Usage:
//
//	hbcurve [-config FILE] [-format csv|json] [-t 38.5] [-ph 7.3] [-pco2 48] [-sensor] [-debug]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/withmandala/go-log"

	"github.com/cgxeiji/hbcurve"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr).WithColor()

	configFile := flag.String("config", "", "Filename with configuration")
	format := flag.String("format", "", "Output format: csv or json")
	temperature := flag.Float64("t", hbcurve.StdTemperature, "Body temperature in °C")
	ph := flag.Float64("ph", hbcurve.StdPH, "Arterial blood pH")
	pco2 := flag.Float64("pco2", hbcurve.StdPCO2, "Arterial partial pressure of CO2 in mmHg")
	sensor := flag.Bool("sensor", false, "Estimate PaO2 from a MAX30102 pulse oximeter")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		logger = logger.WithDebug()
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		logger.Fatal(err)
	}

	// flags given on the command line win over the file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "format":
			cfg.Output.Format = *format
		case "t":
			cfg.Patient.Temperature = *temperature
		case "ph":
			cfg.Patient.PH = *ph
		case "pco2":
			cfg.Patient.PCO2 = *pco2
		case "sensor":
			cfg.Sensor.Enabled = *sensor
		}
	})
	if err := cfg.validate(); err != nil {
		logger.Fatal(err)
	}

	ps, err := connectPublishers(cfg)
	if err != nil {
		logger.Fatal(err)
	}
	defer ps.Close()

	if err := run(cfg, ps); err != nil {
		logger.Error(err)
		ps.Close()
		os.Exit(1)
	}
}

func run(cfg tomlConfig, pub publisher) error {
	logger.Infof("Patient: %v", cfg.Patient)

	p, err := hbcurve.NewPlot(cfg.Patient,
		hbcurve.Domain(cfg.Plot.Min, cfg.Plot.Max),
		hbcurve.Steps(cfg.Plot.Steps),
	)
	if errors.Is(err, hbcurve.ErrInvalidInput) {
		return fmt.Errorf("invalid patient parameter: %w", err)
	} else if errors.Is(err, hbcurve.ErrInvalidRange) {
		return fmt.Errorf("invalid plot parameter: %w", err)
	} else if err != nil {
		return err
	}
	logger.Infof("Shift factor %s, p50 %s mmHg", formatFloat(p.Shift, 4), formatFloat(p.P50, 2))

	if err := output(cfg.Output, p); err != nil {
		return err
	}
	if err := pub.PublishPlot(p); err != nil {
		return err
	}

	if !cfg.Sensor.Enabled {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return poll(ctx, cfg.Sensor, cfg.Patient, pub)
}

func output(cfg tomlConfigOutput, p *hbcurve.Plot) error {
	var w io.Writer = os.Stdout
	if cfg.File != "" {
		f, err := os.Create(cfg.File)
		if err != nil {
			return fmt.Errorf("%s: %w", cfg.File, err)
		}
		defer f.Close()
		w = f
	}

	if err := writePlot(w, cfg.Format, p); err != nil {
		return fmt.Errorf("could not write plot: %w", err)
	}
	if cfg.File != "" {
		logger.Infof("Plot written to %s", cfg.File)
	}
	return nil
}

// poll reads the oximeter every PollRate seconds until ctx is done or Count
// readings were taken.
func poll(ctx context.Context, cfg tomlConfigSensor, patient hbcurve.Inputs, pub publisher) error {
	dev, err := hbcurve.New(
		hbcurve.OnBus(cfg.Bus),
		hbcurve.OnAddr(cfg.Addr),
		hbcurve.Patient(patient),
	)
	if err != nil {
		return fmt.Errorf("could not open sensor: %w", err)
	}
	defer dev.Close()

	if m, err := dev.ToMax30102(); err == nil {
		ir, red := m.LEDCurrents()
		logger.Infof("MAX30102 rev.%d, LED currents IR %.1fmA red %.1fmA", dev.RevID, ir, red)
	}

	return readLoop(ctx, dev, time.Duration(cfg.PollRate)*time.Second, cfg.Count, pub)
}

type reader interface {
	Read() (hbcurve.Reading, error)
}

func readLoop(ctx context.Context, dev reader, every time.Duration, count int, pub publisher) error {
	t := time.NewTicker(every)
	defer t.Stop()

	n := 0
	for {
		r, err := dev.Read()
		switch {
		case errors.Is(err, hbcurve.ErrNotDetected):
			logger.Warnf("No finger on the sensor")
		case err != nil:
			return err
		default:
			logger.Infof("SpO2 %.1f%% -> PaO2 %.1f mmHg (die %.1f°C)", r.SpO2, r.PaO2, r.DieTemperature)
			if err := pub.PublishReading(r); err != nil {
				logger.Errorf("could not publish reading: %v", err)
			}
			n++
			if count > 0 && n >= count {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			logger.Info("Stopping")
			return nil
		case <-t.C:
		}
	}
}
