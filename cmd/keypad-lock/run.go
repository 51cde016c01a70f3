package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/logging"
	"github.com/tebeka/atexit"

	"github.com/sweeney/keypad-lock/internal/audit"
	"github.com/sweeney/keypad-lock/internal/config"
	"github.com/sweeney/keypad-lock/internal/console"
	"github.com/sweeney/keypad-lock/internal/discovery"
	"github.com/sweeney/keypad-lock/internal/gpio"
	"github.com/sweeney/keypad-lock/internal/keypad"
	"github.com/sweeney/keypad-lock/internal/lock"
	"github.com/sweeney/keypad-lock/internal/mqtt"
	"github.com/sweeney/keypad-lock/internal/status"
	"github.com/sweeney/keypad-lock/internal/web"
)

// auditTimeout bounds a single audit write so a slow disk cannot stall the keypad.
const auditTimeout = 2 * time.Second

func run(cfg config.Config) error {
	level, err := console.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	var diag io.Writer = os.Stderr
	if cfg.SerialPort != "" {
		port, err := console.OpenSerial(cfg.SerialPort, cfg.SerialBaud)
		if err != nil {
			return fmt.Errorf("open serial console: %w", err)
		}
		defer port.Close()
		diag = console.Tee(os.Stderr, port)
	}
	loggerFactory := console.NewLoggerFactory(diag, level)

	board, err := gpio.NewRealBoard(cfg.Chip, cfg.OutputPins())
	if err != nil {
		return fmt.Errorf("init outputs: %w", err)
	}
	defer board.Close()
	// Park the motor driver and LEDs even if we exit through atexit.
	atexit.Register(func() { board.Close() })

	matrix, err := keypad.NewMatrix(cfg.Chip, cfg.KeypadPins(), keypad.DefaultLayout)
	if err != nil {
		return fmt.Errorf("init keypad: %w", err)
	}
	defer matrix.Close()

	startTime := time.Now()
	lockCfg := cfg.LockConfig()
	ctrl, err := lock.NewController(lockCfg, lock.Hardware{
		Direction: board.Line(gpio.RoleDirection),
		Step:      board.Line(gpio.RoleStep),
		Success:   board.Line(gpio.RoleSuccess),
		Failure:   board.Line(gpio.RoleFailure),
		Activity:  board.Line(gpio.RoleActivity),
		Sleeper:   lock.SleepFunc(time.Sleep),
	}, startTime, loggerFactory)
	if err != nil {
		return fmt.Errorf("init controller: %w", err)
	}

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = offlinePublisher{}
	if cfg.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	}
	defer publisher.Close()

	var (
		recorder audit.Recorder
		lister   audit.Lister
	)
	if cfg.AuditDB != "" {
		store, err := audit.Open(context.Background(), cfg.AuditDB)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer store.Close()
		recorder, lister = store, store
	} else {
		mem := audit.NewMemoryStore()
		recorder, lister = mem, mem
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(startTime, status.Config{
		PollMs:         cfg.Poll.Milliseconds(),
		HeartbeatMs:    cfg.Heartbeat.Milliseconds(),
		Broker:         cfg.Broker,
		HTTPAddr:       cfg.HTTPAddr,
		BufferCapacity: lockCfg.Capacity,
		UnlockSteps:    lockCfg.Profile.Unlock.Steps,
		LockSteps:      lockCfg.Profile.Lock.Steps,
		DwellMs:        lockCfg.Profile.Dwell.Milliseconds(),
	})
	refreshSystemInfo(tracker)
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, lister)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTPAddr)

		if cfg.MDNS {
			if adv, err := startAdvertiser(cfg.HTTPAddr, loggerFactory); err != nil {
				log.Printf("mdns: %v", err)
			} else {
				defer adv.Close()
			}
		}
	}

	log.Printf("started: poll=%v heartbeat=%v broker=%s capacity=%d steps=%d/%d dwell=%v",
		cfg.Poll, cfg.Heartbeat, cfg.Broker, lockCfg.Capacity,
		lockCfg.Profile.Unlock.Steps, lockCfg.Profile.Lock.Steps, lockCfg.Profile.Dwell)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(matrix, ctrl, publisher, publisher, tracker, recorder, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

// runLoop polls the keypad once per tick until a signal arrives. A granted
// code blocks the loop for the whole unlock cycle, so a signal received
// mid-cycle is handled only after the latch has relocked.
func runLoop(source keypad.Source, ctrl *lock.Controller, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, recorder audit.Recorder, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	if tracker != nil {
		ctrl.OnActuatorState(tracker.SetActuator)
	}

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
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				tracker.Update(ctrl.BufferLen(), ctrl.Counts())
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			key, ok, err := source.Poll()
			if err != nil {
				log.Printf("keypad read error: %v", err)
				continue
			}

			if ok {
				if ev, handled := ctrl.Handle(key, t); handled {
					dispatch(ev, publisher, tracker, recorder)
				}
			}

			if hbData := ctrl.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v keys=%d dropped=%d resets=%d granted=%d denied=%d",
					hbData.Uptime, hbData.Counts.Keys, hbData.Counts.Dropped, hbData.Counts.Resets,
					hbData.Counts.Granted, hbData.Counts.Denied)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					refreshSystemInfo(tracker)
					tracker.Update(ctrl.BufferLen(), ctrl.Counts())
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(ctrl.BufferLen(), ctrl.Counts())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// dispatch fans a handled event out to MQTT, the audit log and the tracker.
// Failures are logged and never stop the loop.
func dispatch(ev lock.Event, publisher mqtt.Publisher, tracker *status.Tracker, recorder audit.Recorder) {
	if tracker != nil {
		tracker.RecordEvent(ev)
	}

	if mqtt.ShouldPublish(ev) {
		log.Printf("event: %s (length=%d)", ev.Type, ev.Length)
		if err := publisher.Publish(ev); err != nil {
			log.Printf("publish error: %v", err)
		}
	}

	if a, ok := audit.FromEvent(ev); ok && recorder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := recorder.Record(ctx, a); err != nil {
			log.Printf("audit error: %v", err)
		}
	}
}

func startAdvertiser(httpAddr string, lf logging.LoggerFactory) (*discovery.Advertiser, error) {
	port, err := discovery.PortFromAddr(httpAddr)
	if err != nil {
		return nil, err
	}
	adv, err := discovery.NewAdvertiser(discovery.Config{
		Port:          port,
		TXT:           []string{"service=keypad-lock"},
		LoggerFactory: lf,
	})
	if err != nil {
		return nil, err
	}
	if err := adv.Start(); err != nil {
		return nil, err
	}
	return adv, nil
}

// offlinePublisher stands in when no broker is configured.
type offlinePublisher struct{}

func (offlinePublisher) Publish(lock.Event) error { return nil }

func (offlinePublisher) PublishSystem(mqtt.SystemEvent) error { return nil }

func (offlinePublisher) Close() error { return nil }

func (offlinePublisher) IsConnected() bool { return false }
