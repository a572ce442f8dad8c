package main

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	_ "github.com/influxdata/influxdb1-client" // this is important because of the bug in go mod
	influxclient "github.com/influxdata/influxdb1-client/v2"

	"github.com/cgxeiji/hbcurve"
)

// publisher sends plots and oximeter readings somewhere outside the process.
type publisher interface {
	PublishPlot(p *hbcurve.Plot) error
	PublishReading(r hbcurve.Reading) error
	Close()
}

// publishers fans out to every configured publisher.
type publishers []publisher

func (ps publishers) PublishPlot(p *hbcurve.Plot) error {
	for _, pub := range ps {
		if err := pub.PublishPlot(p); err != nil {
			return err
		}
	}
	return nil
}

func (ps publishers) PublishReading(r hbcurve.Reading) error {
	for _, pub := range ps {
		if err := pub.PublishReading(r); err != nil {
			return err
		}
	}
	return nil
}

func (ps publishers) Close() {
	for _, pub := range ps {
		pub.Close()
	}
}

// mqttClient is the part of mqtt.Client the publisher uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type mqttPublisher struct {
	client mqttClient
	prefix string
}

func mqttConnect(cfg tomlConfigMQTT) (*mqttPublisher, error) {
	opts := mqtt.NewClientOptions()

	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.BrokerHost, cfg.BrokerPort))
	if cfg.BrokerPassword != "" && cfg.BrokerUsername != "" {
		opts.SetUsername(cfg.BrokerUsername)
		opts.SetPassword(cfg.BrokerPassword)
	}
	opts.SetClientID(cfg.ClientId)
	opts.OnConnect = func(client mqtt.Client) {
		r := client.OptionsReader()
		logger.Infof("Connected to MQTT at %s", r.Servers())
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Errorf("MQTT Connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("could not connect to MQTT broker: %w", token.Error())
	}

	return &mqttPublisher{client: client, prefix: cfg.TopicPrefix}, nil
}

func (m *mqttPublisher) publish(topic string, payload interface{}) error {
	topic = m.prefix + "/" + topic
	logger.Debugf("topic = %s", topic)
	token := m.client.Publish(topic, 0, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("could not publish to %s: %w", topic, err)
	}
	return nil
}

func (m *mqttPublisher) PublishPlot(p *hbcurve.Plot) error {
	curve, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := m.publish("curve", curve); err != nil {
		return err
	}
	if err := m.publish("shift", formatFloat(p.Shift, 6)); err != nil {
		return err
	}
	return m.publish("p50", formatFloat(p.P50, 3))
}

func (m *mqttPublisher) PublishReading(r hbcurve.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return m.publish("reading", payload)
}

func (m *mqttPublisher) Close() {
	m.client.Disconnect(250)
}

type influxPublisher struct {
	client      influxclient.Client
	database    string
	measurement string
}

func influxConnect(cfg tomlConfigInflux) (*influxPublisher, error) {
	httpConfig := influxclient.HTTPConfig{
		Addr: fmt.Sprintf("http://%s:%d", cfg.Hostname, cfg.Port),
	}
	if cfg.Username != "" && cfg.Password != "" {
		httpConfig.Username = cfg.Username
		httpConfig.Password = cfg.Password
	}

	c, err := influxclient.NewHTTPClient(httpConfig)
	if err != nil {
		return nil, fmt.Errorf("could not create InfluxDB client: %w", err)
	}

	return &influxPublisher{
		client:      c,
		database:    cfg.Database,
		measurement: cfg.Measurement,
	}, nil
}

// plotPoints returns one point per sample, tagged with the curve it belongs
// to. All points share the timestamp of the plot.
func plotPoints(measurement string, p *hbcurve.Plot, tm time.Time) ([]*influxclient.Point, error) {
	var points []*influxclient.Point
	for _, c := range []struct {
		name  string
		curve hbcurve.Curve
		shift float64
	}{
		{"reference", p.Reference, 1},
		{"patient", p.Patient, p.Shift},
	} {
		for _, s := range c.curve {
			tags := map[string]string{
				"curve": c.name,
				"pao2":  formatFloat(s.X, 3),
			}
			fields := map[string]interface{}{
				"pao2":  s.X,
				"spo2":  s.Y,
				"shift": c.shift,
			}
			point, err := influxclient.NewPoint(measurement, tags, fields, tm)
			if err != nil {
				return nil, fmt.Errorf("could not create point: %w", err)
			}
			points = append(points, point)
		}
	}
	return points, nil
}

func (i *influxPublisher) write(points ...*influxclient.Point) error {
	bp, err := influxclient.NewBatchPoints(influxclient.BatchPointsConfig{
		Database:  i.database,
		Precision: "s",
	})
	if err != nil {
		return fmt.Errorf("could not create batch points: %w", err)
	}
	bp.AddPoints(points)

	if err := i.client.Write(bp); err != nil {
		return fmt.Errorf("could not write to InfluxDB: %w", err)
	}
	logger.Debugf("%d points published to InfluxDB", len(points))
	return nil
}

func (i *influxPublisher) PublishPlot(p *hbcurve.Plot) error {
	points, err := plotPoints(i.measurement, p, time.Now())
	if err != nil {
		return err
	}
	return i.write(points...)
}

func (i *influxPublisher) PublishReading(r hbcurve.Reading) error {
	point, err := influxclient.NewPoint(i.measurement+"_reading", nil, map[string]interface{}{
		"spo2":            r.SpO2,
		"pao2":            r.PaO2,
		"shift":           r.Shift,
		"die_temperature": r.DieTemperature,
	}, time.Now())
	if err != nil {
		return fmt.Errorf("could not create point: %w", err)
	}
	return i.write(point)
}

func (i *influxPublisher) Close() {
	if err := i.client.Close(); err != nil {
		logger.Errorf("could not close InfluxDB client: %v", err)
	}
}

// connectPublishers opens every publisher that has a configuration section.
func connectPublishers(cfg tomlConfig) (publishers, error) {
	var ps publishers

	if cfg.Mqtt != (tomlConfigMQTT{}) {
		m, err := mqttConnect(cfg.Mqtt)
		if err != nil {
			return nil, err
		}
		ps = append(ps, m)
	} else {
		logger.Info("No MQTT configuration found - not publishing to MQTT broker")
	}

	if cfg.Influx != (tomlConfigInflux{}) {
		i, err := influxConnect(cfg.Influx)
		if err != nil {
			ps.Close()
			return nil, err
		}
		ps = append(ps, i)
	} else {
		logger.Info("No InfluxDB configuration found - not writing to InfluxDB")
	}

	return ps, nil
}
