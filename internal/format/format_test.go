package format

import (
	"fmt"
	"testing"
	"time"

	"github.com/jusunglee/njt-go/internal/models"
)

// 08:00 in New York
var testNow = time.Date(2026, 10, 19, 8, 0, 0, 0, StationTimezone)

func TestNormalizeRespectsLimitAndOrder(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		limit int
		want  int
	}{
		{"fewer items than limit", 2, 5, 2},
		{"more items than limit", 7, 3, 3},
		{"equal", 4, 4, 4},
		{"empty board", 0, 3, 0},
		{"no limit", 6, 0, 6},
		{"negative limit", 2, -1, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]models.RawTrip, tt.n)
			for i := range items {
				items[i] = models.RawTrip{TrainID: fmt.Sprintf("%d", i), Status: "ON TIME"}
			}

			trips := Normalize(items, tt.limit, testNow)
			if len(trips) != tt.want {
				t.Fatalf("Expected %d trips, got %d", tt.want, len(trips))
			}
			for i, trip := range trips {
				if trip.TrainID != fmt.Sprintf("%d", i) {
					t.Errorf("Trip %d: expected train %d, got %s", i, i, trip.TrainID)
				}
			}
		})
	}
}

func TestNormalizeDoesNotResort(t *testing.T) {
	items := []models.RawTrip{
		{TrainID: "late", ScheduledDeparture: "09:00"},
		{TrainID: "early", ScheduledDeparture: "08:05"},
	}

	trips := Normalize(items, 5, testNow)
	if trips[0].TrainID != "late" || trips[1].TrainID != "early" {
		t.Errorf("Expected API order to be preserved, got %s, %s", trips[0].TrainID, trips[1].TrainID)
	}
}

func TestNormalizePlaceholders(t *testing.T) {
	trips := Normalize([]models.RawTrip{{}}, 1, testNow)
	trip := trips[0]

	if trip.Track != TrackTBA {
		t.Errorf("Expected track %q, got %q", TrackTBA, trip.Track)
	}
	for field, value := range map[string]string{
		"status":      trip.Status,
		"scheduled":   trip.ScheduledDeparture,
		"train_id":    trip.TrainID,
		"line":        trip.Line,
		"destination": trip.Destination,
	} {
		if value != Unknown {
			t.Errorf("Expected %s to be %q, got %q", field, Unknown, value)
		}
	}
	if trip.MinutesUntil != nil {
		t.Errorf("Expected no minutes_until, got %d", *trip.MinutesUntil)
	}

	blank := Normalize([]models.RawTrip{{Track: "  "}}, 1, testNow)[0]
	if blank.Track != TrackTBA {
		t.Errorf("Expected whitespace track to become %q, got %q", TrackTBA, blank.Track)
	}
}

func TestNormalizeTwoDepartures(t *testing.T) {
	items := []models.RawTrip{
		{Status: "ON TIME", ScheduledDeparture: "08:10", Track: "3"},
		{Status: "DELAYED", ScheduledDeparture: "08:25", Track: "TBA"},
	}

	trips := Normalize(items, 5, testNow)
	if len(trips) != 2 {
		t.Fatalf("Expected 2 trips, got %d", len(trips))
	}

	want := []struct {
		status, scheduled, track string
		minutes                  int
	}{
		{"ON TIME", "08:10 AM", "3", 10},
		{"DELAYED", "08:25 AM", "TBA", 25},
	}
	for i, w := range want {
		trip := trips[i]
		if trip.Status != w.status {
			t.Errorf("Trip %d: expected status %s, got %s", i, w.status, trip.Status)
		}
		if trip.ScheduledDeparture != w.scheduled {
			t.Errorf("Trip %d: expected scheduled %s, got %s", i, w.scheduled, trip.ScheduledDeparture)
		}
		if trip.Track != w.track {
			t.Errorf("Trip %d: expected track %s, got %s", i, w.track, trip.Track)
		}
		if trip.MinutesUntil == nil || *trip.MinutesUntil != w.minutes {
			t.Errorf("Trip %d: expected %d minutes until departure, got %v", i, w.minutes, trip.MinutesUntil)
		}
		for name, v := range map[string]string{"train_id": trip.TrainID, "line": trip.Line, "destination": trip.Destination} {
			if v == "" {
				t.Errorf("Trip %d: %s not populated", i, name)
			}
		}
	}
}

func TestParseDeparture(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"19-Oct-2026 08:10:00 AM", time.Date(2026, 10, 19, 8, 10, 0, 0, StationTimezone), true},
		{"19-Oct-2026 01:45:00 PM", time.Date(2026, 10, 19, 13, 45, 0, 0, StationTimezone), true},
		{"2026-10-19T08:30:00", time.Date(2026, 10, 19, 8, 30, 0, 0, StationTimezone), true},
		{"2026-10-19T12:30:00Z", time.Date(2026, 10, 19, 12, 30, 0, 0, time.UTC), true},
		{"08:10", time.Date(2026, 10, 19, 8, 10, 0, 0, StationTimezone), true},
		{"8:40 PM", time.Date(2026, 10, 19, 20, 40, 0, 0, StationTimezone), true},
		{"", time.Time{}, false},
		{"soon", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDeparture(tt.input, testNow)
			if ok != tt.ok {
				t.Fatalf("ParseDeparture(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if ok && !got.Equal(tt.want) {
				t.Errorf("ParseDeparture(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDepartureAfterMidnight(t *testing.T) {
	lateNight := time.Date(2026, 10, 19, 23, 55, 0, 0, StationTimezone)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"00:10", time.Date(2026, 10, 20, 0, 10, 0, 0, StationTimezone)},
		{"12:05 AM", time.Date(2026, 10, 20, 0, 5, 0, 0, StationTimezone)},
		{"23:58", time.Date(2026, 10, 19, 23, 58, 0, 0, StationTimezone)},
		{"23:50", time.Date(2026, 10, 19, 23, 50, 0, 0, StationTimezone)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDeparture(tt.input, lateNight)
			if !ok {
				t.Fatalf("ParseDeparture(%q) failed", tt.input)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDeparture(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}

	trips := Normalize([]models.RawTrip{{ScheduledDeparture: "00:10"}}, 5, lateNight)
	if trips[0].MinutesUntil == nil || *trips[0].MinutesUntil != 15 {
		t.Fatalf("Expected 15 minutes, got %v", trips[0].MinutesUntil)
	}
	if got := State(trips); got != "12:10 AM (15 min)" {
		t.Errorf("State() = %q, want %q", got, "12:10 AM (15 min)")
	}
}

func TestMinutesUntilUsesStationTime(t *testing.T) {
	// Same instant as testNow, expressed in UTC
	now := testNow.UTC()
	trips := Normalize([]models.RawTrip{{ScheduledDeparture: "19-Oct-2026 08:45:00 AM"}}, 1, now)

	if trips[0].MinutesUntil == nil || *trips[0].MinutesUntil != 45 {
		t.Errorf("Expected 45 minutes, got %v", trips[0].MinutesUntil)
	}
	if trips[0].ScheduledDeparture != "08:45 AM" {
		t.Errorf("Expected 08:45 AM, got %s", trips[0].ScheduledDeparture)
	}
}

func TestUnparseableDepartureKeepsRawValue(t *testing.T) {
	trips := Normalize([]models.RawTrip{{ScheduledDeparture: "soon"}}, 1, testNow)
	if trips[0].ScheduledDeparture != "soon" {
		t.Errorf("Expected raw value to be kept, got %s", trips[0].ScheduledDeparture)
	}
	if !trips[0].DepartureTime.IsZero() {
		t.Error("Expected zero departure time")
	}
}

func TestForDestination(t *testing.T) {
	items := []models.RawTrip{
		{TrainID: "1", Destination: "Trenton"},
		{TrainID: "2", Destination: "Dover"},
		{TrainID: "3", Destination: "TR"},
		{TrainID: "4", Destination: "trenton "},
	}

	got := ForDestination(items, "TR", "Trenton")
	if len(got) != 3 {
		t.Fatalf("Expected 3 trips, got %d", len(got))
	}
	for i, id := range []string{"1", "3", "4"} {
		if got[i].TrainID != id {
			t.Errorf("Trip %d: expected train %s, got %s", i, id, got[i].TrainID)
		}
	}

	if len(ForDestination(items, "")) != 0 {
		t.Error("Expected empty station to match nothing")
	}
}

func TestState(t *testing.T) {
	minutes := 12
	tests := []struct {
		name  string
		trips []models.TripRecord
		want  string
	}{
		{"no trips", nil, NoDepartures},
		{"with minutes", []models.TripRecord{{ScheduledDeparture: "08:12 AM", MinutesUntil: &minutes}}, "08:12 AM (12 min)"},
		{"unparsed time", []models.TripRecord{{ScheduledDeparture: "soon"}}, "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := State(tt.trips); got != tt.want {
				t.Errorf("State() = %q, want %q", got, tt.want)
			}
		})
	}
}
