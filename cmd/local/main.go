package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jusunglee/njt-go/internal/format"
	"github.com/jusunglee/njt-go/internal/models"
	"github.com/jusunglee/njt-go/internal/njt"
	"github.com/jusunglee/njt-go/internal/setup"
)

func main() {
	var (
		username    = flag.String("username", "", "RailData username")
		password    = flag.String("password", "", "RailData password")
		station     = flag.String("station", "NY", "Station code")
		destination = flag.String("destination", "", "Only show trains bound for this station")
		limit       = flag.Int("limit", 5, "Number of departures")
		validate    = flag.String("validate", "", "Resolve a station name or code and exit")
		baseURL     = flag.String("base-url", njt.DefaultBaseURL, "RailData API base URL")
	)
	flag.Parse()

	// Fallback to environment variables if credentials not provided via flag
	if *username == "" {
		*username = os.Getenv("NJT_USERNAME")
	}
	if *password == "" {
		*password = os.Getenv("NJT_PASSWORD")
	}
	if *username == "" || *password == "" {
		slog.Error("RailData credentials required (use -username/-password flags or NJT_USERNAME/NJT_PASSWORD env vars)")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Station lookup mode
	if *validate != "" {
		result, errs := setup.NewValidator(*baseURL, nil, nil).Validate(ctx, setup.Input{
			Username: *username,
			Password: *password,
			Station:  *validate,
		})
		if errs != nil {
			slog.Error("Validation failed", "errors", errs)
			os.Exit(1)
		}
		fmt.Printf("%s (%s)\n", result.Station.Name, result.Station.Code)
		return
	}

	auth := njt.NewAuthenticator(*baseURL, models.Credentials{Username: *username, Password: *password})
	token, err := auth.Token(ctx)
	if err != nil {
		slog.Error("Failed to authenticate", "error", err)
		os.Exit(1)
	}

	board, err := njt.NewFetcher(*baseURL, nil, false, nil).Schedule(ctx, token, *station)
	if err != nil {
		slog.Error("Failed to fetch schedule", "station", *station, "error", err)
		os.Exit(1)
	}

	items := board.Items
	if *destination != "" {
		items = format.ForDestination(items, *destination)
	}
	trips := format.Normalize(items, *limit, time.Now())

	name := board.StationName
	if name == "" {
		name = *station
	}
	fmt.Printf("\nDepartures from %s:\n", name)
	if len(trips) == 0 {
		fmt.Println("  " + format.NoDepartures)
	}
	for _, trip := range trips {
		minutes := "?"
		if trip.MinutesUntil != nil {
			minutes = fmt.Sprintf("%d", *trip.MinutesUntil)
		}
		fmt.Printf("  %s (%s min)  %-6s %-24s track %-4s %s\n",
			trip.ScheduledDeparture, minutes, trip.TrainID, trip.Destination, trip.Track, trip.Status)
	}

	fmt.Printf("\nToken valid until: %s\n", auth.Expiry().In(format.StationTimezone).Format("3:04 PM"))
}
