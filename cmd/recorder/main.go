package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/owlcms/recorder/internal/config"
	"github.com/owlcms/recorder/internal/devices"
	"github.com/owlcms/recorder/internal/ffmpeg"
	"github.com/owlcms/recorder/internal/gstreamer"
	"github.com/owlcms/recorder/internal/httpServer"
	"github.com/owlcms/recorder/internal/logging"
	"github.com/owlcms/recorder/internal/monitor"
	"github.com/owlcms/recorder/internal/player"
	"github.com/owlcms/recorder/internal/source"
	"github.com/owlcms/recorder/internal/status"
	"github.com/owlcms/recorder/internal/sysstats"
	"github.com/owlcms/recorder/internal/websocket"
)

const shutdownTimeout = 30 * time.Second

var (
	configPath  string
	verbose     bool
	headless    bool
	listDevices bool
)

// app holds the running services of the recorder.
type app struct {
	cfg        *config.Config
	configPath string
	events     *status.Hub
	registry   *player.Registry
	dispatcher *player.SerialDispatcher
	sampler    *sysstats.Sampler
	sockets    *websocket.Hub
	mqtt       *monitor.Monitor
	cancel     context.CancelFunc
	stopOnce   sync.Once
}

func main() {
	// Disable Fyne telemetry
	os.Setenv("FYNE_TELEMETRY", "0")

	flag.StringVar(&configPath, "config", filepath.Join(config.InstallDir(), "config.toml"), "configuration file")
	flag.BoolVar(&verbose, "v", false, "enable verbose logging")
	flag.BoolVar(&verbose, "verbose", false, "enable verbose logging")
	flag.BoolVar(&headless, "headless", false, "run without the preview window")
	flag.BoolVar(&listDevices, "list-devices", false, "print the local capture devices as player configurations and exit")
	flag.Parse()

	logging.SetVerbose(verbose)
	if err := logging.Init(filepath.Join(config.InstallDir(), "logs")); err != nil {
		fmt.Printf("Warning: Failed to initialize logging: %v\n", err)
	}
	defer logging.Close()

	if listDevices {
		if err := printDevices(); err != nil {
			logging.ErrorLogger.Fatalf("Listing devices: %v", err)
		}
		return
	}

	if err := config.ExtractDefaultConfig(configPath); err != nil {
		logging.ErrorLogger.Fatalf("Error creating %s: %v", configPath, err)
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logging.ErrorLogger.Fatalf("Error loading configuration: %v", err)
	}
	if cfg.Verbose {
		logging.SetVerbose(true)
	}
	logging.InfoLogger.Printf("owlcms recorder %s", config.GetProgramVersion())

	a := start(cfg, configPath)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	if headless || cfg.Headless {
		<-sigChan
		logging.InfoLogger.Println("Interrupt signal received. Shutting down...")
		a.shutdown()
		return
	}
	runWindow(a, sigChan)
	a.shutdown()
}

func start(cfg *config.Config, path string) *app {
	ffmpeg.Init()
	sources := source.NewFactory()
	sources.Register(source.KindDecoder, ffmpeg.NewDecoderSource)
	sources.Register(source.KindGrabber, gstreamer.NewGrabberSource)
	sources.Register(source.KindMachineVision, gstreamer.NewMachineVisionSource)

	a := &app{
		cfg:        cfg,
		configPath: path,
		events:     status.NewHub(),
		dispatcher: player.NewSerialDispatcher(),
		sockets:    websocket.NewHub(),
	}
	a.registry = player.NewRegistry(player.Options{
		Sources:           sources,
		Encoders:          ffmpeg.Encoders,
		Log:               a.events,
		Dispatcher:        a.dispatcher,
		QueueSize:         cfg.QueueSize,
		FirstFrameTimeout: cfg.FirstFrameTimeout.Duration,
	})
	for _, p := range cfg.Players {
		if _, err := a.registry.Add(p); err != nil {
			logging.ErrorLogger.Printf("Player %q not started: %v", p.Name, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if err := os.MkdirAll(cfg.VideoDir, os.ModePerm); err != nil {
		logging.ErrorLogger.Printf("Creating %s: %v", cfg.VideoDir, err)
	}
	a.sampler = sysstats.NewSampler(cfg.VideoDir, cfg.StatsInterval.Duration)
	go a.sampler.Run(ctx)

	if cfg.MQTTBroker != "" {
		a.mqtt = monitor.New(cfg.MQTTBroker, cfg.MQTTTopic, a.registry)
		a.mqtt.Connect()
	}

	// network writes stay off the capture and record goroutines
	forward := a.events.Channel(256)
	go func() {
		for ev := range forward {
			a.sockets.OnEvent(ev)
			if a.mqtt != nil {
				a.mqtt.OnEvent(ev)
			}
		}
	}()

	go httpServer.StartServer(cfg.Port, &httpServer.API{
		Registry: a.registry,
		Sampler:  a.sampler,
		Events:   a.sockets,
	})
	return a
}

// shutdown stops every player, then saves the increments so file names keep counting up.
func (a *app) shutdown() {
	a.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.registry.Shutdown(ctx); err != nil {
			logging.ErrorLogger.Printf("Stopping players: %v", err)
		}

		for i, p := range a.cfg.Players {
			if c, ok := a.registry.Get(p.Name); ok {
				a.cfg.Players[i] = c.Config()
			}
		}
		if err := config.SaveConfig(a.configPath, a.cfg); err != nil {
			logging.ErrorLogger.Printf("Saving configuration: %v", err)
		}

		httpServer.StopServer()
		if a.mqtt != nil {
			a.mqtt.Stop()
		}
		a.sockets.Close()
		a.dispatcher.Close()
		a.cancel()
		logging.InfoLogger.Println("Recorder stopped")
	})
}

// printDevices writes a [[players]] section for every capture device found.
func printDevices() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cameras, err := devices.List(ctx)
	if err != nil {
		return err
	}
	if len(cameras) == 0 {
		fmt.Println("# no capture devices found")
		return nil
	}

	var out struct {
		Players []config.PlayerConfig `toml:"players"`
	}
	for i, cam := range cameras {
		fmt.Printf("# %s (%s)\n", cam.Name, cam.Device)
		for _, m := range cam.Modes {
			fmt.Printf("#   %s\n", m)
		}
		out.Players = append(out.Players, cam.PlayerConfig(fmt.Sprintf("camera%d", i+1)))
	}
	return toml.NewEncoder(os.Stdout).Encode(out)
}
