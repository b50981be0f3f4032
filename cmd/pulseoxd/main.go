package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/psah/pulseox/internal/ble"
	"github.com/psah/pulseox/internal/config"
	"github.com/psah/pulseox/internal/oximeter"
	"github.com/psah/pulseox/internal/sensor"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/pulseoxd/config.yaml)")
	synthetic := flag.Bool("synthetic", false, "use a synthetic waveform instead of the MAX30101 sensor")
	flag.Parse()

	// Optional .env for deployment overrides (PULSEOX_CONFIG).
	_ = godotenv.Load()
	if *configPath == "" {
		*configPath = os.Getenv("PULSEOX_CONFIG")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Configuration errors are the only fatal class: the device refuses to
	// run rather than report silently wrong vitals.
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	setupLogging(cfg.LogLevel)
	printBanner(cfg, *synthetic)

	source, cleanup, err := openSource(cfg, *synthetic)
	if err != nil {
		log.Fatalf("sensor: %v", err)
	}
	defer cleanup()

	pipeline, err := oximeter.NewPipeline(cfg)
	if err != nil {
		log.Fatalf("pipeline: %v", err)
	}

	service := ble.NewService(ble.NewBlueZRadio(), ble.Options{
		DeviceName:          cfg.DeviceName,
		AdvertisingInterval: time.Duration(cfg.BLE.AdvertisingIntervalMs) * time.Millisecond,
	})
	if err := service.Start(); err != nil {
		log.Fatalf("ble: %v", err)
	}
	defer service.Stop()

	runner := oximeter.NewRunner(source, pipeline, service, cfg.Sensor.SampleRateHz)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Sampling at %d Hz, advertising as %q. Ctrl+C to quit.", cfg.Sensor.SampleRateHz, cfg.DeviceName)
	if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("control loop: %v", err)
	}
	log.Println("Shutting down")
}

// openSource returns the configured raw-sample source and a cleanup func.
func openSource(cfg *config.Config, synthetic bool) (sensor.Source, func(), error) {
	if synthetic {
		log.Println("Using synthetic waveform source")
		return sensor.NewSynthetic(sensor.DefaultSyntheticOptions(), time.Now()), func() {}, nil
	}

	bus, err := sensor.OpenI2C(cfg.Sensor.I2CDevice, sensor.MAX30101Addr)
	if err != nil {
		return nil, nil, err
	}
	dev := sensor.NewMAX30101(bus)
	if err := dev.Configure(); err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("configuring MAX30101 (check wiring and power): %w", err)
	}
	log.Println("MAX30101 ready")
	return dev, func() { bus.Close() }, nil
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

func setupLogging(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config, synthetic bool) {
	sourceDesc := cfg.Sensor.I2CDevice
	if synthetic {
		sourceDesc = "synthetic"
	}
	fmt.Println("=== pulseoxd ===")
	fmt.Printf("  Device:    %s\n", cfg.DeviceName)
	fmt.Printf("  Sensor:    %s @ %d Hz\n", sourceDesc, cfg.Sensor.SampleRateHz)
	fmt.Printf("  Filter:    window %d, dc alpha %g\n", cfg.Filter.Window, cfg.Filter.DCAlpha)
	fmt.Printf("  Calib:     SpO2 = %g - %g*R\n", cfg.Vitals.CalibrationA, cfg.Vitals.CalibrationB)
	fmt.Printf("  Aggregate: every %d readings\n", cfg.Aggregation.Count)
	fmt.Printf("  Advertise: every %d ms\n", cfg.BLE.AdvertisingIntervalMs)
	fmt.Printf("  Log:       %s\n", cfg.LogLevel)
	fmt.Println("================")
}
