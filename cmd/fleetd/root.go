package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"droneFleetManagement/internal/config"
	"droneFleetManagement/internal/fleet"
	"droneFleetManagement/internal/logging"
	"droneFleetManagement/internal/weather"
	"droneFleetManagement/repository"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	dev        bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "fleetd",
		Short:         "Drone fleet dispatch and mission lifecycle service",
		Long:          "fleetd matches missions to drones, gates dispatch on weather and tracks delivery requests and maintenance tickets.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("CONFIG_FILE"), "YAML config overlay")
	cmd.PersistentFlags().BoolVar(&opts.dev, "dev", false, "allow a development JWT secret")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newTokenCmd(opts))
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) load() (*config.Config, error) {
	return config.Resolve(o.configPath, o.dev)
}

// loadLocal is load for commands that only touch the database and never
// verify tokens.
func (o *options) loadLocal() (*config.Config, error) {
	return config.LoadFrom(o.configPath)
}

// newEngine builds the engine the way every command needs it. The OpenWeather
// client is used only when an API key is configured.
func newEngine(cfg *config.Config, store *repository.Store, logger *slog.Logger) *fleet.Engine {
	var provider weather.Provider = weather.StaticProvider(weather.Neutral())
	if cfg.Weather.APIKey != "" {
		c := weather.NewOpenWeatherClient(cfg.Weather.APIKey)
		if cfg.Weather.BaseURL != "" {
			c.BaseURL = cfg.Weather.BaseURL
		}
		provider = c
	}
	return fleet.New(store, provider,
		fleet.WithLogger(logger),
		fleet.WithMaxPayloadKg(cfg.Fleet.MaxPayloadKg),
		fleet.WithSetupMinutes(cfg.Fleet.SetupMinutes),
		fleet.WithWeatherTimeout(cfg.Weather.Timeout),
	)
}

func quietLogger() *slog.Logger {
	return logging.New("error", io.Discard)
}
