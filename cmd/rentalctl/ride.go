package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"car-rental/config"
	"car-rental/internal/notifications"
	"car-rental/internal/rides"
	"car-rental/internal/tracking"
	"car-rental/pkg/jwt"
)

// frameLog prints every tenth animation frame and the final one.
type frameLog struct {
	mu  sync.Mutex
	out io.Writer
}

func (l *frameLog) Broadcast(f tracking.Frame) {
	if f.Step%10 != 0 && f.Step != f.Total && !f.Final {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%-5s %3d/%-3d %.6f,%.6f %s\n", f.Phase, f.Step, f.Total, f.Lat, f.Lng, f.State)
}

func newRideCmd(g *globals, cfg config.Config) *cobra.Command {
	var (
		customer string
		from     string
		to       string
		carID    string
		delay    time.Duration
		wait     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "ride",
		Short: "Run a full ride against the backend: pick a car, walk, drive and settle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pickup, err := parsePoint(from)
			if err != nil {
				return err
			}
			dest, err := parsePoint(to)
			if err != nil {
				return err
			}

			log := g.logger()
			client := g.client()
			notes := notifications.NewMemoryStore()
			completer := rides.NewCompleter(client, notes, cfg.DefaultPaymentMethod, log)
			svc := rides.NewService(client, nil, &frameLog{out: cmd.OutOrStdout()}, completer, nil, rides.Options{
				StepDelay: delay,
				WalkSteps: cfg.RideWalkSteps,
			}, log)

			ctx, cancel := context.WithTimeout(jwt.WithToken(cmd.Context(), g.token), wait)
			defer cancel()
			defer svc.Shutdown(context.Background())

			start, err := svc.Start(ctx, customer, pickup)
			if err != nil {
				return err
			}
			if len(start.Cars) == 0 {
				return fmt.Errorf("no available cars")
			}
			pick := start.Cars[0].ID
			if carID != "" {
				pick = carID
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ride %s: %d cars offered, taking %s\n", start.Ride.ID, len(start.Cars), pick)

			if _, err := svc.SelectCar(ctx, start.Ride.ID, pick); err != nil {
				return err
			}
			ride, err := waitFor(ctx, svc, start.Ride.ID, delay, func(r *rides.Ride) bool { return r.State == rides.StateCarSelected })
			if err != nil {
				return err
			}
			if _, err := svc.Accept(ctx, ride.ID, dest); err != nil {
				return err
			}
			ride, err = waitFor(ctx, svc, ride.ID, delay, func(r *rides.Ride) bool { return r.State.Terminal() })
			if err != nil {
				return err
			}

			if ride.State != rides.StateComplete {
				return fmt.Errorf("ride failed: %s", ride.Error)
			}
			s := ride.Summary
			if s == nil {
				return fmt.Errorf("ride %s completed without a summary", ride.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "done: %.2f km, $%.2f, rental %s, payment %s\n",
				s.DistanceKm, s.TotalCost, s.RentalID, s.PaymentID)
			return nil
		},
	}
	cmd.Flags().StringVar(&customer, "customer", "", "customer profile ID")
	cmd.Flags().StringVar(&from, "from", "", "pickup lat,lng")
	cmd.Flags().StringVar(&to, "to", "", "destination lat,lng")
	cmd.Flags().StringVar(&carID, "car", "", "car ID to take instead of the nearest")
	cmd.Flags().DurationVar(&delay, "step-delay", 20*time.Millisecond, "animation step delay")
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Minute, "give up after this long")
	_ = cmd.MarkFlagRequired("customer")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func waitFor(ctx context.Context, svc *rides.Service, id string, every time.Duration, done func(*rides.Ride) bool) (*rides.Ride, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		r, err := svc.Get(id)
		if err != nil {
			return nil, err
		}
		if done(r) {
			return r, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("ride %s stuck in %s: %w", id, r.State, ctx.Err())
		case <-ticker.C:
		}
	}
}
