package main

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"car-rental/internal/geo"
)

func newDistanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distance FROM TO",
		Short: "Great-circle distance in km between two lat,lng points",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parsePoint(args[0])
			if err != nil {
				return err
			}
			to, err := parsePoint(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.2f km\n", geo.Distance(from, to))
			return nil
		},
	}
}

func newRouteCmd() *cobra.Command {
	var seed int64
	cmd := &cobra.Command{
		Use:   "route FROM TO",
		Short: "Print the synthetic driving route between two lat,lng points",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parsePoint(args[0])
			if err != nil {
				return err
			}
			to, err := parsePoint(args[1])
			if err != nil {
				return err
			}
			path := geo.Route(from, to, rand.New(rand.NewSource(seed)))
			out := cmd.OutOrStdout()
			for i, p := range path {
				fmt.Fprintf(out, "%3d  %.6f,%.6f\n", i, p.Lat, p.Lng)
			}
			fmt.Fprintf(out, "%d points, %.2f km along the path\n", len(path), geo.PathLength(path))
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for the route's detours")
	return cmd
}

// parsePoint reads "lat,lng".
func parsePoint(s string) (geo.Point, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Point{}, fmt.Errorf("point %q: want lat,lng", s)
	}
	p := geo.Point{}
	var err error
	if p.Lat, err = strconv.ParseFloat(strings.TrimSpace(lat), 64); err != nil {
		return geo.Point{}, fmt.Errorf("point %q: latitude: %v", s, err)
	}
	if p.Lng, err = strconv.ParseFloat(strings.TrimSpace(lng), 64); err != nil {
		return geo.Point{}, fmt.Errorf("point %q: longitude: %v", s, err)
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return geo.Point{}, fmt.Errorf("point %q: out of range", s)
	}
	return p, nil
}
