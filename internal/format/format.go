// Package format turns raw departure board items into normalized trip records.
package format

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/jusunglee/njt-go/internal/models"
)

const (
	// Unknown replaces any missing string field except the track
	Unknown = "Unknown"
	// TrackTBA replaces a missing track assignment
	TrackTBA = "TBA"
	// NoDepartures is the single-station state when the board is empty
	NoDepartures = "No departures"

	displayLayout = "03:04 PM"

	// clockRollover is how far in the past a clock-only time may be before it is read as tomorrow
	clockRollover = 12 * time.Hour
)

// StationTimezone is the zone departure times are expressed in
var StationTimezone = mustLoadLocation("America/New_York")

var dateLayouts = []string{
	"02-Jan-2006 03:04:05 PM",
	"2-Jan-2006 03:04:05 PM",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Clock-only layouts are anchored to today's date at the station
var clockLayouts = []string{
	"15:04",
	"3:04 PM",
	"03:04 PM",
}

// Normalize maps at most limit raw items, in API order, to trip records
// A limit <= 0 keeps every item
func Normalize(items []models.RawTrip, limit int, now time.Time) []models.TripRecord {
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	result := make([]models.TripRecord, 0, len(items))
	for _, item := range items {
		result = append(result, normalizeTrip(item, now))
	}
	return result
}

func normalizeTrip(item models.RawTrip, now time.Time) models.TripRecord {
	trip := models.TripRecord{
		Status:             orDefault(item.Status, Unknown),
		ScheduledDeparture: orDefault(item.ScheduledDeparture, Unknown),
		TrainID:            orDefault(item.TrainID, Unknown),
		Line:               orDefault(item.Line, Unknown),
		Track:              orDefault(item.Track, TrackTBA),
		Destination:        orDefault(item.Destination, Unknown),
	}

	departure, ok := ParseDeparture(item.ScheduledDeparture, now)
	if !ok {
		return trip
	}
	minutes := int(departure.Sub(now) / time.Minute)
	trip.DepartureTime = departure
	trip.ScheduledDeparture = departure.In(StationTimezone).Format(displayLayout)
	trip.MinutesUntil = &minutes
	return trip
}

// ParseDeparture parses a scheduled departure in station time
func ParseDeparture(value string, now time.Time) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, StationTimezone); err == nil {
			return t, true
		}
	}

	local := now.In(StationTimezone)
	for _, layout := range clockLayouts {
		if t, err := time.ParseInLocation(layout, value, StationTimezone); err == nil {
			departure := time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, StationTimezone)
			// Boards never list trains that left hours ago, so this one runs after midnight
			if departure.Before(local.Add(-clockRollover)) {
				departure = departure.AddDate(0, 0, 1)
			}
			return departure, true
		}
	}
	return time.Time{}, false
}

// ForDestination keeps items bound for the given station code or name
func ForDestination(items []models.RawTrip, station ...string) []models.RawTrip {
	result := make([]models.RawTrip, 0, len(items))
	for _, item := range items {
		dest := strings.TrimSpace(item.Destination)
		for _, s := range station {
			if s != "" && strings.EqualFold(dest, strings.TrimSpace(s)) {
				result = append(result, item)
				break
			}
		}
	}
	return result
}

// State renders the single-station state for the next departure
func State(trips []models.TripRecord) string {
	if len(trips) == 0 {
		return NoDepartures
	}
	next := trips[0]
	if next.MinutesUntil == nil {
		return next.ScheduledDeparture
	}
	return fmt.Sprintf("%s (%d min)", next.ScheduledDeparture, *next.MinutesUntil)
}

func orDefault(value, placeholder string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return placeholder
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
