package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/camnode/camnode/cmd"
	"github.com/camnode/camnode/internal/api"
	"github.com/camnode/camnode/internal/camera"
	"github.com/camnode/camnode/internal/config"
	"github.com/camnode/camnode/internal/devices"
	"github.com/camnode/camnode/internal/events"
	"github.com/camnode/camnode/internal/led"
	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/internal/metrics"
	"github.com/camnode/camnode/internal/v4l2"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Camera settings
	Device           string `help:"Capture device node or stable identifier" short:"d" default:"/dev/video0" toml:"camera.device" env:"CAMERA_DEVICE"`
	CameraConfigFile string `help:"Camera settings file (format, controls)" default:"camera.toml" toml:"camera.config_file" env:"CAMERA_CONFIG_FILE"`
	OutputFormat     string `help:"Pixel format frames are converted to before publishing, empty for passthrough" default:"" toml:"camera.output_format" env:"CAMERA_OUTPUT_FORMAT"`
	AutoStart        bool   `help:"Start capturing on startup" default:"true" toml:"camera.auto_start" env:"CAMERA_AUTO_START"`

	// Device monitor settings
	MonitorInterval string `help:"Poll interval for device hotplug detection, 0 to disable" default:"2s" toml:"devices.monitor_interval" env:"DEVICES_MONITOR_INTERVAL"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Features settings
	FeaturesLEDControl bool `help:"Drive a board LED from the capture state" default:"false" toml:"features.led_control_enabled" env:"FEATURES_LED_CONTROL"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingCamera  string `help:"Camera logging level" default:"info" toml:"logging.camera" env:"LOGGING_CAMERA"`
	LoggingV4L2    string `help:"Device layer logging level" default:"info" toml:"logging.v4l2" env:"LOGGING_V4L2"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingDevices string `help:"Device discovery logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"camera":  opts.LoggingCamera,
				"v4l2":    opts.LoggingV4L2,
				"api":     opts.LoggingAPI,
				"devices": opts.LoggingDevices,
			},
		})
		logger := logging.GetLogger("main")

		eventBus := events.New()

		// Persisted camera settings (format, controls). A missing file
		// is fine; it is created on the first change made via the API.
		store := config.NewCameraStore(opts.CameraConfigFile)
		if err := store.Load(); err != nil {
			logger.Warn("Failed to load camera settings", "error", err)
		}
		settings := store.Settings()

		deviceID := opts.Device
		if settings.Device != "" {
			deviceID = settings.Device
		}
		devicePath, err := devices.ResolvePath(deviceID)
		if err != nil {
			logger.Error("Failed to resolve device", "device", deviceID, "error", err)
			os.Exit(1)
		}

		dev, err := v4l2.Open(devicePath, logging.GetLogger("v4l2"))
		if err != nil {
			logger.Error("Failed to open device", "path", devicePath, "error", err)
			os.Exit(1)
		}

		applyFormat(dev, settings, logger)

		collector := metrics.NewCollector(dev.Name())

		outputFourCC := parseOutputFormat(opts.OutputFormat, settings.OutputFormat, logger)
		cam := camera.New(dev, logging.GetLogger("camera"), camera.Options{
			OutputFourCC: outputFourCC,
			Sink:         events.NewFrameSink(eventBus, dev.Name()),
			Stats:        events.NewStatsSink(eventBus, dev.Name(), collector),
		})

		bridge := camera.NewControlBridge(dev, logging.GetLogger("camera"))
		if len(settings.Controls) > 0 {
			if err := bridge.Apply(settings.Controls); err != nil {
				logger.Warn("Failed to apply persisted controls", "error", err)
			}
		}

		frameCache := api.NewFrameCache(eventBus)

		caps := dev.Capabilities()
		server := api.NewServer(&api.Options{
			AuthUsername: opts.AuthUsername,
			AuthPassword: opts.AuthPassword,
			Camera:       cam,
			Controls:     bridge,
			Device: api.DeviceIdentity{
				Path:    dev.Path(),
				Name:    dev.Name(),
				Card:    caps.Card,
				Driver:  caps.Driver,
				BusInfo: caps.BusInfo,
				Version: caps.Version,
			},
			Formats:    dev.Formats(),
			FrameSizes: dev.FrameSizes,
			Discover:   devices.Discover,
			OnFormatApplied: func(pf v4l2.PixelFormat) {
				eventBus.Publish(events.FormatChangedEvent{
					Camera:    dev.Name(),
					Format:    pf.String(),
					Width:     pf.Width,
					Height:    pf.Height,
					Timestamp: time.Now().UTC(),
				})
				if err := store.SetFormat(pf.FourCC.String(), pf.Width, pf.Height); err != nil {
					logger.Warn("Failed to persist format", "error", err)
				}
			},
			OnControlApplied: func(name string, value int64) {
				collector.ControlWritten()
				eventBus.Publish(events.ControlChangedEvent{
					Camera:    dev.Name(),
					Control:   name,
					Value:     value,
					Timestamp: time.Now().UTC(),
				})
				if err := store.SetControl(name, value); err != nil {
					logger.Warn("Failed to persist control", "control", name, "error", err)
				}
			},
			OnStreamState: func(on bool) {
				collector.StreamState(on)
				eventBus.Publish(events.StreamStateEvent{
					Camera:    dev.Name(),
					Streaming: on,
					Timestamp: time.Now().UTC(),
				})
			},
			PrometheusHandler: collector.Handler(),
			FrameHandler:      frameCache,
		})

		// Reload camera settings when the file changes on disk.
		watcher := config.NewConfigWatcher(
			opts.CameraConfigFile,
			config.LoadCameraSettings,
			logging.GetLogger("config"),
		)
		watcher.OnReload(func(s config.CameraSettings) {
			logger.Info("Camera settings changed, reapplying")
			if want, ok := settingsFormat(cam.Format(), s, logger); ok {
				if _, err := cam.SetFormat(want); err != nil {
					logger.Warn("Failed to apply reloaded format", "error", err)
				}
			}
			if len(s.Controls) > 0 {
				if err := bridge.Apply(s.Controls); err != nil {
					logger.Warn("Failed to apply reloaded controls", "error", err)
				}
			}
			if cc := parseOutputFormat("", s.OutputFormat, logger); cc != 0 {
				cam.SetOutputFourCC(cc)
			}
		})

		var ledManager *led.Manager
		if opts.FeaturesLEDControl {
			logger.Info("LED control enabled, initializing")
			ledManager = led.NewManager(led.New(logger), eventBus, logger)
		}

		monitorCtx, cancelMonitor := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if err := watcher.Start(); err != nil {
				logger.Warn("Failed to watch camera settings", "error", err)
			}

			if interval, err := time.ParseDuration(opts.MonitorInterval); err == nil && interval > 0 {
				monitor := devices.NewMonitor(eventBus, logging.GetLogger("devices"), interval)
				go monitor.Run(monitorCtx)
			}

			if ledManager != nil {
				ledManager.Start()
			}

			if opts.AutoStart {
				if err := cam.Start(context.Background()); err != nil {
					logger.Error("Failed to start capture", "error", err)
				} else {
					collector.StreamState(true)
					eventBus.Publish(events.StreamStateEvent{
						Camera:    dev.Name(),
						Streaming: true,
						Timestamp: time.Now().UTC(),
					})
				}
			}

			if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
				logger.Debug("systemd notify unavailable", "error", err)
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
				logger.Debug("systemd notify unavailable", "error", err)
			}

			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			cancelMonitor()
			if stopErr := watcher.Stop(); stopErr != nil {
				logger.Error("Error stopping config watcher", "error", stopErr)
			}
			if ledManager != nil {
				ledManager.Stop()
			}
			frameCache.Close()
			if closeErr := cam.Close(); closeErr != nil {
				logger.Error("Error closing camera", "error", closeErr)
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateDevicesCmd())
	cli.Root().AddCommand(cmd.CreateSnapshotCmd())
	cli.Root().AddCommand(cmd.CreateUpdateCmd())

	cli.Run()
}

// applyFormat negotiates the persisted format, if any is set.
func applyFormat(dev *v4l2.Device, s config.CameraSettings, logger *slog.Logger) {
	want, ok := settingsFormat(dev.Format(), s, logger)
	if !ok {
		return
	}
	if _, err := dev.RequestFormat(want); err != nil {
		logger.Warn("Failed to apply persisted format", "error", err)
	}
}

// settingsFormat overlays persisted settings on the current format.
func settingsFormat(current v4l2.PixelFormat, s config.CameraSettings, logger *slog.Logger) (v4l2.PixelFormat, bool) {
	if s.PixelFormat == "" && s.Width == 0 && s.Height == 0 {
		return current, false
	}
	if s.PixelFormat != "" {
		cc, err := v4l2.ParseFourCC(s.PixelFormat)
		if err != nil {
			logger.Warn("Invalid persisted pixel format", "value", s.PixelFormat, "error", err)
			return current, false
		}
		current.FourCC = cc
	}
	if s.Width > 0 {
		current.Width = s.Width
	}
	if s.Height > 0 {
		current.Height = s.Height
	}
	return current, true
}

// parseOutputFormat prefers the persisted setting over the CLI flag.
// Zero means publish frames in the capture encoding unchanged.
func parseOutputFormat(flagValue, persisted string, logger *slog.Logger) v4l2.FourCC {
	value := flagValue
	if persisted != "" {
		value = persisted
	}
	if value == "" {
		return 0
	}
	cc, err := v4l2.ParseFourCC(value)
	if err != nil {
		logger.Warn("Invalid output format", "value", value, "error", err)
		return 0
	}
	return cc
}
