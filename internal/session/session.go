// Package session assembles a running application from settings: logging,
// telemetry, metrics, the event bus and its sinks, the optional MQTT mirror
// and the command facade. Every entry point opens one Session and closes it
// on exit.
package session

import (
	"context"
	"io"
	"time"

	"github.com/jaja2302/Palm-counting-AI/internal/app"
	"github.com/jaja2302/Palm-counting-AI/internal/buildinfo"
	"github.com/jaja2302/Palm-counting-AI/internal/conf"
	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/events"
	"github.com/jaja2302/Palm-counting-AI/internal/httpclient"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
	"github.com/jaja2302/Palm-counting-AI/internal/mqtt"
	"github.com/jaja2302/Palm-counting-AI/internal/observability"
	"github.com/jaja2302/Palm-counting-AI/internal/paths"
	"github.com/jaja2302/Palm-counting-AI/internal/telemetry"
)

const (
	mqttConnectTimeout = 10 * time.Second
	telemetryFlushWait = 2 * time.Second
)

// Options configures Open.
type Options struct {
	Settings *conf.Settings
	Build    *buildinfo.Context

	// Events receives one JSON line per event. Nil disables the stream.
	Events io.Writer

	// Console receives human-readable log records. Nil means stderr.
	Console io.Writer

	// Consumers are registered on the bus after the built-in sinks.
	Consumers []events.EventConsumer
}

// Session owns everything Open created.
type Session struct {
	App     *app.App
	Bus     *events.EventBus
	Metrics *observability.Metrics
	Log     logger.Logger

	settings   *conf.Settings
	central    *logger.CentralLogger
	http       *httpclient.Client
	mqttClient mqtt.Client
	mirror     *mqtt.Mirror
}

// Open builds a Session and prepares the database.
func Open(ctx context.Context, opts Options) (*Session, error) {
	s := opts.Settings
	if s == nil {
		return nil, errors.Newf("settings are required").
			Component("session").
			Category(errors.CategoryConfiguration).
			Build()
	}

	resolver, err := paths.New(s.Paths.DataDir, s.Paths.TempDir)
	if err != nil {
		return nil, err
	}

	logCfg := s.Logging
	if logCfg.FileOutput != nil && logCfg.FileOutput.Enabled && logCfg.FileOutput.Path == "" {
		fo := *logCfg.FileOutput
		fo.Path = resolver.LogPath()
		logCfg.FileOutput = &fo
	}
	if s.Debug {
		logCfg.DefaultLevel = string(logger.LogLevelDebug)
		if logCfg.Console != nil {
			console := *logCfg.Console
			console.Level = string(logger.LogLevelDebug)
			logCfg.Console = &console
		}
	}
	central, err := logger.NewCentralLoggerTo(&logCfg, opts.Console)
	if err != nil {
		return nil, errors.New(err).
			Component("session").
			Category(errors.CategoryConfiguration).
			Context("operation", "init-logger").
			Build()
	}
	logger.SetGlobal(central)
	log := central.Module("session")

	sess := &Session{settings: s, central: central, Log: log}

	if err := telemetry.InitSentry(telemetry.Config{
		Enabled: s.Telemetry.Enabled,
		DSN:     s.Telemetry.DSN,
		Release: opts.Build.GetVersion(),
	}); err != nil {
		// Telemetry is optional; carry on without it.
		log.Warn("telemetry disabled", logger.Error(err))
	}

	sess.Metrics, err = observability.NewMetrics()
	if err != nil {
		_ = sess.Close()
		return nil, err
	}

	sess.Bus = events.NewEventBus(central.Module("events"))
	var consumers []events.EventConsumer
	if opts.Events != nil {
		consumers = append(consumers, events.NewJSONLinesSink(opts.Events))
	}
	consumers = append(consumers, events.NewLogSink(central.Module("events")), sess.Metrics.Events)
	if s.MQTT.Enabled {
		if mirror := sess.openMirror(ctx); mirror != nil {
			consumers = append(consumers, mirror)
		}
	}
	consumers = append(consumers, opts.Consumers...)
	for _, c := range consumers {
		if err := sess.Bus.RegisterConsumer(c); err != nil {
			_ = sess.Close()
			return nil, err
		}
	}

	sess.http = httpclient.New(&httpclient.Config{UserAgent: opts.Build.UserAgent()})
	sess.http.SetBeforeRequestHook(sess.Metrics.HTTP.BeforeRequest)
	sess.http.SetAfterResponseHook(sess.Metrics.HTTP.AfterResponse)

	sess.App, err = app.New(app.Deps{
		Settings: s,
		Emitter:  sess.Bus,
		Log:      central.Module("app"),
		HTTP:     sess.http,
	})
	if err != nil {
		_ = sess.Close()
		return nil, err
	}
	if err := sess.App.Setup(ctx); err != nil {
		_ = sess.Close()
		return nil, err
	}

	log.Debug("session opened",
		logger.String("version", opts.Build.GetVersion()),
		logger.String("data_dir", resolver.AppDataRoot()))
	return sess, nil
}

// openMirror connects to the broker. A failed connection is logged and the
// session continues without a mirror.
func (s *Session) openMirror(ctx context.Context) *mqtt.Mirror {
	cfg := mqtt.DefaultConfig()
	cfg.Broker = s.settings.MQTT.Broker
	cfg.ClientID = s.settings.Main.Name
	cfg.Username = s.settings.MQTT.Username
	cfg.Password = s.settings.MQTT.Password
	if s.settings.MQTT.Topic != "" {
		cfg.Topic = s.settings.MQTT.Topic
	}

	log := s.central.Module("mqtt")
	client := mqtt.NewClient(cfg, s.Metrics.MQTT, log)

	connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		log.Warn("mqtt mirror disabled", logger.Error(err))
		client.Disconnect()
		return nil
	}
	s.mqttClient = client
	s.mirror = mqtt.NewMirror(client, cfg, log)
	return s.mirror
}

// Close stops background work, drains the MQTT mirror, writes the metrics
// textfile and flushes logs. Safe to call on a partially opened session.
func (s *Session) Close() error {
	if s.App != nil {
		s.App.Close()
	}
	if s.mirror != nil {
		s.mirror.Close()
	}
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.http != nil {
		s.http.Close()
	}

	var errs []error
	if s.Metrics != nil {
		if err := s.Metrics.WriteTextfile(s.settings.Metrics.Textfile); err != nil {
			s.Log.Warn("metrics textfile not written", logger.Error(err))
			errs = append(errs, err)
		}
	}
	if s.settings.Telemetry.Enabled {
		telemetry.Flush(telemetryFlushWait)
	}
	if err := s.central.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
