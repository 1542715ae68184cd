// Command rentalctl drives the car-rental client packages from a terminal.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"car-rental/config"
	"car-rental/internal/api"
	"car-rental/pkg/logger"
)

type globals struct {
	backendURL string
	token      string
	timeout    time.Duration
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	g := &globals{}

	root := &cobra.Command{
		Use:           "rentalctl",
		Short:         "Fleet, route and ride tooling for the car-rental backend",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.backendURL, "backend", cfg.BackendURL, "backend base URL")
	root.PersistentFlags().StringVar(&g.token, "token", os.Getenv("RENTAL_TOKEN"), "bearer token sent to the backend")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", cfg.BackendTimeout, "per request timeout")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newDistanceCmd(),
		newRouteCmd(),
		newCarsCmd(g),
		newRideCmd(g, cfg),
	)
	return root
}

func (g *globals) logger() logger.Logger {
	return logger.New("rentalctl", g.logLevel, "console")
}

func (g *globals) client() *api.Client {
	return api.NewClient(g.backendURL, g.timeout, g.logger())
}
