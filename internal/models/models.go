package models

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// Credentials are the RailData API login supplied once at setup
type Credentials struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"-" yaml:"password"`
}

// Token is a bearer credential issued by the token endpoint
type Token struct {
	Value     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the token can still be used at now
func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// Station represents a rail station from the station list
type Station struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// TripRecord represents one normalized departure
type TripRecord struct {
	Status             string    `json:"status"`
	ScheduledDeparture string    `json:"scheduled_departure"`
	DepartureTime      time.Time `json:"-"`
	MinutesUntil       *int      `json:"minutes_until,omitempty"`
	TrainID            string    `json:"train_id"`
	Line               string    `json:"line"`
	Track              string    `json:"track"`
	Destination        string    `json:"destination"`
}

// AttributeValue converts the record into a structpb-compatible map
func (t TripRecord) AttributeValue() map[string]interface{} {
	v := map[string]interface{}{
		"status":              t.Status,
		"scheduled_departure": t.ScheduledDeparture,
		"train_id":            t.TrainID,
		"line":                t.Line,
		"track":               t.Track,
		"destination":         t.Destination,
	}
	if t.MinutesUntil != nil {
		v["minutes_until"] = *t.MinutesUntil
	}
	return v
}

// Snapshot is the published state of a sensor
// Replaced wholesale on every refresh cycle
type Snapshot struct {
	SensorID     string           `json:"sensor_id"`
	Name         string           `json:"name"`
	State        string           `json:"state"`
	Attributes   *structpb.Struct `json:"-"`
	UpdatedAt    time.Time        `json:"updated_at"`
	AuthRequired bool             `json:"auth_required"`
	Err          string           `json:"error,omitempty"`
}

// Empty reports whether the snapshot carries no state
func (s Snapshot) Empty() bool {
	return s.State == "" && len(s.Attributes.GetFields()) == 0
}

// ScheduleResponse is the getTrainSchedule response body
type ScheduleResponse struct {
	StationCode string    `json:"STATION_2CHAR"`
	StationName string    `json:"STATIONNAME"`
	Items       []RawTrip `json:"ITEMS"`
}

// RawTrip is one departure as returned by getTrainSchedule
type RawTrip struct {
	ScheduledDeparture string `json:"SCHED_DEP_DATE"`
	Destination        string `json:"DESTINATION"`
	Track              string `json:"TRACK"`
	Line               string `json:"LINE"`
	TrainID            string `json:"TRAIN_ID"`
	Status             string `json:"STATUS"`
	SecondaryLine      string `json:"SEC_LINE,omitempty"`
}

// RawStation is one entry of the getStationList response
type RawStation struct {
	Code string `json:"STATION_2CHAR"`
	Name string `json:"STATIONNAME"`
}

// TokenResponse is the getToken response body
type TokenResponse struct {
	Authenticated string `json:"Authenticated"`
	UserToken     string `json:"UserToken"`
}

// ConvertToStation converts a RawStation to the domain Station
func (r RawStation) ConvertToStation() Station {
	return Station{Code: r.Code, Name: r.Name}
}
