// Command radio-buttons turns a GPIO power button and a PCF8575 button panel
// into shutdown and web radio playback requests for a Volumio appliance.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/radio-buttons/internal/binding"
	"github.com/sweeney/radio-buttons/internal/config"
	"github.com/sweeney/radio-buttons/internal/expander"
	"github.com/sweeney/radio-buttons/internal/gpio"
	"github.com/sweeney/radio-buttons/internal/lifecycle"
	"github.com/sweeney/radio-buttons/internal/logic"
	"github.com/sweeney/radio-buttons/internal/mqtt"
	"github.com/sweeney/radio-buttons/internal/router"
	"github.com/sweeney/radio-buttons/internal/status"
	"github.com/sweeney/radio-buttons/internal/system"
	"github.com/sweeney/radio-buttons/internal/volumio"
	"github.com/sweeney/radio-buttons/internal/web"
)

type options struct {
	configPath  string
	chip        string
	bus         string
	broker      string
	clientID    string
	volumioURL  string
	shutdownCmd string
	httpAddr    string
	heartbeat   time.Duration
	printState  bool
	watch       bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "/data/configuration/system_hardware/radio_buttons/config.json", "Button bindings JSON file")
	flag.StringVar(&o.chip, "chip", gpio.DefaultChip, "GPIO character device for the power button")
	flag.StringVar(&o.bus, "i2c-bus", expander.DefaultBus, "I2C bus the PCF8575 is attached to")
	flag.StringVar(&o.broker, "broker", "tcp://localhost:1883", "MQTT broker address")
	flag.StringVar(&o.clientID, "client-id", "radio-buttons", "MQTT client ID")
	flag.StringVar(&o.volumioURL, "volumio", volumio.DefaultURL, "Volumio REST API base URL")
	flag.StringVar(&o.shutdownCmd, "shutdown-cmd", system.DefaultShutdownCommand, "Command run when the power button is pressed")
	flag.StringVar(&o.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.BoolVar(&o.printState, "print-state", false, "Print the button panel register and exit")
	flag.BoolVar(&o.watch, "watch", true, "Reload bindings when the config file changes")

	flag.Parse()

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	loader := config.NewLoader(o.configPath)

	if o.printState {
		b, err := loader.Load()
		if err != nil {
			log.Printf("config: %v (using default address)", err)
		}
		return printState(os.Stdout, expander.PeriphOpener{}, o.bus, b.Expander.Address)
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      expander.PollInterval.Milliseconds(),
		DebounceMs:  gpio.Debounce.Milliseconds(),
		HeartbeatMs: o.heartbeat.Milliseconds(),
		Broker:      o.broker,
		HTTPAddr:    o.httpAddr,
		ConfigPath:  o.configPath,
		Chip:        o.chip,
		Bus:         o.bus,
	})

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(o.broker, o.clientID, tracker.SetMQTTConnected)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	b, err := loader.Load()
	if err != nil {
		log.Printf("config: %v (all inputs disabled until it is fixed)", err)
	}

	store := binding.NewStore(b)
	rt := router.New(store, system.NewShutdown(o.shutdownCmd), volumio.NewClient(o.volumioURL), publisher)
	queue := router.NewQueue(handler(publisher, rt.Dispatch), 0)
	defer queue.Close()

	mgr := lifecycle.New(lifecycle.Config{
		Lines: gpio.NewChipOpener(o.chip),
		Buses: expander.PeriphOpener{},
		BusID: o.bus,
		Sink:  sink(tracker, queue),
		OnState: func(ch logic.Channel, s lifecycle.State) {
			tracker.SetChannelState(ch, string(s))
		},
	})
	// Deferred after queue.Close so it runs first: no new events once the queue drains.
	defer mgr.Stop()
	tracker.SetReadErrorSource(mgr.ReadErrors)
	for _, ch := range []logic.Channel{logic.ChannelInterrupt, logic.ChannelRegister} {
		tracker.SetChannelState(ch, string(mgr.State(ch)))
	}

	a := &app{source: loader, store: store, manager: mgr, tracker: tracker, notifier: publisher}
	a.apply(b)

	// Publish startup event with full status snapshot
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

	// Start HTTP status server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", o.httpAddr)
	}

	reloads := make(chan reload)
	stopWatch := make(chan struct{})
	if o.watch {
		w, err := loader.Watch(func(b binding.Bindings, err error) {
			select {
			case reloads <- reload{bindings: b, err: err}:
			case <-stopWatch:
			}
		})
		if err != nil {
			log.Printf("config: not watching %s: %v", o.configPath, err)
		} else {
			defer w.Close()
			defer close(stopWatch)
		}
	}

	log.Printf("started: config=%s chip=%s bus=%s broker=%s heartbeat=%v", o.configPath, o.chip, o.bus, o.broker, o.heartbeat)

	var tick <-chan time.Time
	if o.heartbeat > 0 {
		ticker := time.NewTicker(o.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	return runLoop(a, publisher, publisher, time.Now, tick, sigCh, reloads)
}

// handler publishes a fired event and then carries out its action.
func handler(publisher mqtt.Publisher, dispatch func(logic.FiredEvent)) func(logic.FiredEvent) {
	return func(ev logic.FiredEvent) {
		if err := publisher.Publish(ev); err != nil {
			log.Printf("publish error: %v", err)
		}
		dispatch(ev)
	}
}

// sink runs on a detector goroutine: it only records and enqueues.
func sink(tracker *status.Tracker, queue *router.Queue) func(logic.FiredEvent) {
	return func(ev logic.FiredEvent) {
		log.Printf("event: %s (%s)", ev.TriggerID(), ev.Channel)
		tracker.Record(ev)
		queue.Submit(ev)
	}
}

// bindingSource loads the current bindings.
type bindingSource interface {
	Load() (binding.Bindings, error)
}

// starter is the part of lifecycle.Manager the loop drives.
type starter interface {
	Start(b binding.Bindings)
}

type reload struct {
	bindings binding.Bindings
	err      error
}

// app applies configuration changes. It is only used from the run loop.
type app struct {
	source   bindingSource
	store    *binding.Store
	manager  starter
	tracker  *status.Tracker
	notifier mqtt.Publisher
}

// apply makes b current and restarts both channels from it.
func (a *app) apply(b binding.Bindings) {
	a.store.Replace(b)
	a.tracker.SetBindings(b)
	a.manager.Start(b)
}

// reload applies freshly loaded bindings. An unreadable file keeps the
// current bindings running.
func (a *app) reload(b binding.Bindings, err error) {
	if err != nil {
		log.Printf("config: reload failed, keeping current bindings: %v", err)
		return
	}
	a.apply(b)
	log.Printf("config: bindings reloaded")
	if err := a.notifier.Notify(mqtt.LevelSuccess, "Radio Buttons", "Configuration reloaded"); err != nil {
		log.Printf("notify error: %v", err)
	}
}

func runLoop(a *app, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, reloads <-chan reload) error {
	for {
		select {
		case s := <-sig:
			if s == syscall.SIGHUP {
				log.Printf("received %v, reloading config", s)
				a.reload(a.source.Load())
				continue
			}

			log.Printf("received %v, shutting down", s)
			signalName := signalName(s)
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if mqttStatus != nil {
				a.tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			event.RawPayload = status.FormatStatusEvent(a.tracker.Snapshot(), "SHUTDOWN", signalName)
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case r := <-reloads:
			a.reload(r.bindings, r.err)

		case <-tick:
			if mqttStatus != nil {
				a.tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			snap := a.tracker.Snapshot()
			log.Printf("heartbeat: uptime=%v interrupt=%s register=%s read_errors=%d",
				snap.Uptime().Truncate(time.Second),
				snap.ChannelState(logic.ChannelInterrupt),
				snap.ChannelState(logic.ChannelRegister),
				snap.ReadErrors)

			hbEvent := mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// printState reads the button panel once and prints the raw register and
// the buttons currently held down.
func printState(w io.Writer, opener expander.BusOpener, busID string, addr uint16) error {
	if addr == 0 {
		addr = config.DefaultAddress
	}
	sample, err := expander.ReadOnce(opener, busID, addr)
	if err != nil {
		return fmt.Errorf("read expander: %w", err)
	}
	fmt.Fprintln(w, formatState(addr, sample))
	return nil
}

func formatState(addr uint16, sample uint16) string {
	// Buttons are active-low: a pressed button reads as a cleared bit.
	var held []string
	for i := logic.ButtonIndex(1); i <= logic.MaxButtons; i++ {
		if sample&(1<<uint(i-1)) == 0 {
			held = append(held, fmt.Sprintf("%d", i))
		}
	}
	pressed := "none"
	if len(held) > 0 {
		pressed = strings.Join(held, ",")
	}
	return fmt.Sprintf("PCF8575 0x%02X: register=0x%04X pressed=%s", addr, sample, pressed)
}
