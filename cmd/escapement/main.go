// Command escapement drives a bendulum clock: it senses resonator passes on a
// GPIO line, kicks the drive coil, runs the temperature-compensated beat
// engine, advances the serial time display, and publishes telemetry to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dehne/escapement/internal/coil"
	"github.com/dehne/escapement/internal/config"
	"github.com/dehne/escapement/internal/display"
	"github.com/dehne/escapement/internal/eeprom"
	"github.com/dehne/escapement/internal/escapement"
	"github.com/dehne/escapement/internal/mqtt"
	"github.com/dehne/escapement/internal/status"
	"github.com/dehne/escapement/internal/therm"
	"github.com/dehne/escapement/internal/web"
)

func main() {
	cfgPath := flag.String("config", "", "YAML config file (optional)")
	broker := flag.String("broker", "", "MQTT broker address (overrides config)")
	heartbeat := flag.Duration("heartbeat", time.Minute, "Heartbeat interval (0 to disable, overrides config)")
	pinSense := flag.Int("pin-sense", coil.DefaultSensePin, "BCM pin for the coil sense line (overrides config)")
	pinKick := flag.Int("pin-kick", coil.DefaultKickPin, "BCM pin for the kick pulse line (overrides config)")
	httpAddr := flag.String("http", ":8080", "HTTP status address (empty to disable, overrides config)")
	settingsPath := flag.String("settings", eeprom.DefaultPath, "Calibration settings file (overrides config)")
	displayPort := flag.String("display", "", "Serial display port (empty to disable, overrides config)")
	noTherm := flag.Bool("no-therm", false, "Skip the temperature sensor and run uncompensated")
	coldStart := flag.Bool("cold-start", false, "Discard saved calibration and start from scratch")
	printTemp := flag.Bool("print-temp", false, "Read the temperature sensor once and exit")

	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		cfg, err = config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "broker":
			cfg.MQTT.Broker = *broker
		case "heartbeat":
			cfg.MQTT.HeartbeatMs = heartbeat.Milliseconds()
		case "pin-sense":
			cfg.Coil.SensePin = *pinSense
		case "pin-kick":
			cfg.Coil.KickPin = *pinKick
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "settings":
			cfg.Settings.Path = *settingsPath
		case "display":
			cfg.Display.Port = *displayPort
		case "no-therm":
			cfg.Thermo.Disable = *noTherm
		}
	})

	if err := run(cfg, *coldStart, *printTemp); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, coldStart, printTemp bool) error {
	// Temperature sensor is optional: without one the engine runs
	// uncompensated with a single calibration bucket.
	var sensor therm.Sensor
	if !cfg.Thermo.Disable {
		s, err := therm.NewRealSensor(cfg.Thermo.Bus, cfg.Thermo.Addr)
		if err != nil {
			log.Printf("no temperature sensor (%v), running uncompensated", err)
		} else {
			sensor = s
			defer sensor.Close()
		}
	}

	if printTemp {
		if sensor == nil {
			return fmt.Errorf("no temperature sensor")
		}
		t := sensor.Read()
		if t == escapement.TempNone {
			return fmt.Errorf("temperature read failed")
		}
		fmt.Printf("%.2f °C\n", t.Celsius())
		return nil
	}

	detector, err := coil.NewRealDetector(cfg.Coil.SensePin)
	if err != nil {
		return fmt.Errorf("init sense line: %w", err)
	}
	defer detector.Close()

	kicker, err := coil.NewRealKicker(cfg.Coil.KickPin)
	if err != nil {
		return fmt.Errorf("init kick line: %w", err)
	}
	defer kicker.Close()

	// Serial display is optional too.
	var disp display.Display
	if cfg.Display.Port != "" {
		d, err := display.NewSerialDisplay(cfg.Display.Port, cfg.Display.Baud)
		if err != nil {
			log.Printf("no display (%v), continuing without", err)
		} else {
			disp = d
			defer disp.Close()
			now := time.Now()
			disp.SetTime(int64(now.Hour())*3600 + int64(now.Minute())*60 + int64(now.Second()))
		}
	}

	publisher := mqtt.NewRealPublisher(cfg.MQTT.Broker)
	defer publisher.Close()

	store := eeprom.NewFileStore(cfg.Settings.Path)
	ctrl := escapement.New(store)
	mode := ctrl.Enable(coldStart, sensor != nil)
	log.Printf("enabled in %s (compensated=%v)", mode, ctrl.Compensated())

	tracker := status.NewTracker(time.Now(), status.Config{
		Broker:       cfg.MQTT.Broker,
		HTTPAddr:     cfg.HTTP.Addr,
		SensePin:     cfg.Coil.SensePin,
		KickPin:      cfg.Coil.KickPin,
		SettingsPath: cfg.Settings.Path,
		DisplayPort:  cfg.Display.Port,
		HeartbeatMs:  cfg.MQTT.HeartbeatMs,
	})

	if err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp: time.Now(),
		Event:     "STARTUP",
		Retained:  true,
	}); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	var hb <-chan time.Time
	if cfg.MQTT.HeartbeatMs > 0 {
		ticker := time.NewTicker(time.Duration(cfg.MQTT.HeartbeatMs) * time.Millisecond)
		defer ticker.Stop()
		hb = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("started: sense=GPIO%d kick=GPIO%d broker=%s settings=%s",
		cfg.Coil.SensePin, cfg.Coil.KickPin, cfg.MQTT.Broker, cfg.Settings.Path)

	return runLoop(detector, kicker, sensor, ctrl, disp, publisher, publisher, tracker, time.Now, hb, sigCh)
}

// errDetectorClosed means the sense line stopped delivering passes.
var errDetectorClosed = errors.New("pass detector closed")

func runLoop(detector coil.Detector, kicker coil.Kicker, sensor therm.Sensor,
	ctrl *escapement.Controller, disp display.Display,
	publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus,
	tracker *status.Tracker, now func() time.Time,
	hb <-chan time.Time, sig <-chan os.Signal) error {

	seenFirst := false

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			}
			return nil

		case p, ok := <-detector.Passes():
			if !ok {
				return errDetectorClosed
			}

			temp := escapement.TempNone
			if sensor != nil {
				temp = sensor.Read()
			}

			prevMode := ctrl.Mode()
			beat := ctrl.ProcessEvent(escapement.Event{
				Timestamp:   p.Timestamp,
				RawInterval: p.Interval,
				Temp:        temp,
			})

			// A zero from any event after the first means the interval was
			// discarded as spurious.
			spurious := seenFirst && beat == 0
			seenFirst = true

			if err := kicker.Kick(); err != nil {
				log.Printf("kick error: %v", err)
			}

			if disp != nil && beat > 0 {
				if err := disp.Advance(beat); err != nil {
					log.Printf("display error: %v", err)
				}
			}

			if tracker != nil {
				tracker.Update(beatStatus(ctrl, spurious))
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			if ctrl.Mode() != prevMode {
				log.Printf("mode: %s -> %s", prevMode, ctrl.Mode())
				if err := publisher.PublishTelemetry(telemetry(ctrl, "MODE_CHANGE", now())); err != nil {
					log.Printf("publish error: %v", err)
				}
			}

		case <-hb:
			log.Printf("heartbeat: mode=%s bpm=%.4f samples=%d",
				ctrl.Mode(), ctrl.CurrentBPM(), ctrl.BucketSamples())
			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			if err := publisher.PublishTelemetry(telemetry(ctrl, "HEARTBEAT", now())); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

// telemetry assembles an MQTT snapshot from the controller state.
func telemetry(ctrl *escapement.Controller, event string, t time.Time) mqtt.Telemetry {
	temp := ctrl.Temperature()
	return mqtt.Telemetry{
		Timestamp:   t,
		Event:       event,
		Mode:        ctrl.Mode().String(),
		BPM:         ctrl.CurrentBPM(),
		AvgBPM:      ctrl.AverageBPM(),
		TempC:       temp.Celsius(),
		TempOK:      temp != escapement.TempNone,
		Compensated: ctrl.Compensated(),
		Bucket:      ctrl.Bucket(),
		Samples:     ctrl.BucketSamples(),
		TickTock:    ctrl.TickTockRatio(),
		SlopeUs:     ctrl.Model().SlopePerDegree(),
		InterceptUs: ctrl.Model().Intercept,
	}
}

// beatStatus assembles a status tracker update from the controller state.
func beatStatus(ctrl *escapement.Controller, spurious bool) status.Beat {
	temp := ctrl.Temperature()
	return status.Beat{
		Mode:          ctrl.Mode().String(),
		BPM:           ctrl.CurrentBPM(),
		AvgBPM:        ctrl.AverageBPM(),
		TempC:         temp.Celsius(),
		TempOK:        temp != escapement.TempNone,
		Compensated:   ctrl.Compensated(),
		Bucket:        ctrl.Bucket(),
		BucketSamples: ctrl.BucketSamples(),
		TickTock:      ctrl.TickTockRatio(),
		SlopeUs:       ctrl.Model().SlopePerDegree(),
		InterceptUs:   ctrl.Model().Intercept,
		Spurious:      spurious,
	}
}
