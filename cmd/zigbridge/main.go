// Zigbridge - Zigbee2MQTT fabric adapter
//
// This is the main entry point for the Zigbridge adapter. It bridges a
// Zigbee2MQTT gateway onto a northbound home-automation fabric:
//   - Gateway devices and groups become typed fabric endpoints
//   - Gateway state payloads become endpoint attribute updates
//   - Fabric commands become gateway set publishes
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zigbridge/zigbridge-core/internal/bridge"
	"github.com/zigbridge/zigbridge-core/internal/entity"
	"github.com/zigbridge/zigbridge-core/internal/fabric"
	"github.com/zigbridge/zigbridge-core/internal/infrastructure/config"
	"github.com/zigbridge/zigbridge-core/internal/infrastructure/history"
	"github.com/zigbridge/zigbridge-core/internal/infrastructure/logging"
	"github.com/zigbridge/zigbridge-core/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Zigbridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// The data directory holds retained-topic diagnostics
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Connect to the gateway's MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT, log.With("component", "mqtt"))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
		"client_id", mqttClient.ClientID(),
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect the attribute-history sink (optional)
	var historyClient *history.Client
	if cfg.History.Enabled {
		historyClient, err = history.Connect(cfg.History)
		if err != nil && !errors.Is(err, history.ErrDisabled) {
			return fmt.Errorf("connecting history sink: %w", err)
		}
		if historyClient != nil {
			defer func() {
				log.Info("closing history sink")
				if closeErr := historyClient.Close(); closeErr != nil {
					log.Error("error closing history sink", "error", closeErr)
				}
			}()
			historyClient.SetOnError(func(err error) {
				log.Error("history write error", "error", err)
			})
			log.Info("history sink connected",
				"url", cfg.History.URL,
				"bucket", cfg.History.Bucket,
			)
		}
	} else {
		log.Info("history sink disabled")
	}

	// The northbound fabric host. The in-memory host keeps the adapter
	// self-contained; an embedding fabric substitutes its own here.
	host := fabric.NewInMemoryHost(fabric.InMemoryHostVersion)

	// Diagnostics writer, shared so command publishes land in the same
	// capped traffic log as the controller's refresh burst. Follows the
	// logger's debug state so a debug log level enables it too.
	diag := bridge.NewDiagnostics(cfg.DataDir, cfg.Debug || log.DebugEnabled(), log.With("component", "diagnostics"))

	// Entity registry maps gateway devices and groups onto endpoints
	registryOpts := entity.Options{
		Config:    cfg,
		Host:      host,
		Publisher: &bridge.MirroredPublisher{Publisher: mqttClient, Diag: diag},
		Logger:    log.With("component", "entity"),
	}
	if historyClient != nil {
		registryOpts.Observer = historyClient
	}
	registry, err := entity.NewRegistry(registryOpts)
	if err != nil {
		return fmt.Errorf("creating entity registry: %w", err)
	}

	// Bridge controller drives startup sync and live updates
	controller, err := bridge.NewController(bridge.Options{
		Config:      cfg,
		MQTT:        mqttClient,
		Registry:    registry,
		Logger:      log.With("component", "bridge"),
		Diagnostics: diag,
	})
	if err != nil {
		return fmt.Errorf("creating bridge controller: %w", err)
	}

	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge controller: %w", err)
	}
	defer func() {
		log.Info("stopping bridge controller")
		controller.Stop(context.Background())
	}()
	log.Info("bridge controller started",
		"topic", cfg.MQTT.Topic,
		"entities", len(registry.Names()),
	)

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. Bridge controller (unregister or offline entities)
	// 2. History sink (if enabled)
	// 3. MQTT

	log.Info("Zigbridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ZIGBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ZIGBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
