package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"car-rental/internal/api"
	"car-rental/internal/geo"
	"car-rental/pkg/jwt"
)

func newCarsCmd(g *globals) *cobra.Command {
	var (
		status string
		near   string
	)
	cmd := &cobra.Command{
		Use:   "cars",
		Short: "List fleet cars, optionally filtered by status or sorted by distance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := jwt.WithToken(cmd.Context(), g.token)
			cars, err := g.client().ListCars(ctx)
			if err != nil {
				return err
			}

			if status != "" {
				kept := cars[:0]
				for _, c := range cars {
					if string(c.Status) == status {
						kept = append(kept, c)
					}
				}
				cars = kept
			}

			var from *geo.Point
			if near != "" {
				p, err := parsePoint(near)
				if err != nil {
					return err
				}
				from = &p
				sort.SliceStable(cars, func(i, j int) bool {
					return geo.Distance(p, cars[i].Location) < geo.Distance(p, cars[j].Location)
				})
			}

			printCars(cmd, cars, from)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only cars in this status (available, rented, maintenance, out-of-service)")
	cmd.Flags().StringVar(&near, "near", "", "lat,lng to sort by distance from")
	return cmd
}

func printCars(cmd *cobra.Command, cars []api.Car, from *geo.Point) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCAR\tPLATE\tSTATUS\tRATE\tMILEAGE\tDISTANCE")
	for _, c := range cars {
		dist := "-"
		if from != nil {
			dist = fmt.Sprintf("%.2f km", geo.Distance(*from, c.Location))
		}
		fmt.Fprintf(tw, "%s\t%s %s (%d)\t%s\t%s\t$%s/km\t%s km\t%s\n",
			c.ID, c.Brand, c.Model, c.Year, c.LicensePlate, c.Status,
			humanize.CommafWithDigits(c.RentalRate, 2), humanize.Comma(int64(c.Mileage)), dist)
	}
	tw.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "%d cars\n", len(cars))
}
