package models

import (
	"github.com/goccy/go-json"
)

// NullMask flags optional fields the upstream sent as an explicit JSON null
type NullMask uint8

const (
	NullCallsign NullMask = 1 << iota
	NullOriginCountry
	NullLatitude
	NullLongitude
	NullAltitude
	NullVelocity
	NullHeading
)

// AircraftState is one point-in-time snapshot of a tracked aircraft as served to the map.
// A nil field is omitted from JSON unless its Nulls flag is set, in which case it is written as null.
type AircraftState struct {
	ICAO24        string   // 24-bit transponder address, marker key on the map
	Callsign      *string
	OriginCountry *string
	Latitude      *float64
	Longitude     *float64
	Altitude      *float64 // meters
	Velocity      *float64 // m/s over ground
	Heading       *float64 // degrees clockwise from north
	Nulls         NullMask
}

// HasPosition reports whether the snapshot carries both coordinates
func (s *AircraftState) HasPosition() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// MarshalJSON writes fields in a fixed order so identical snapshots encode identically
func (s AircraftState) MarshalJSON() ([]byte, error) {
	icao, err := json.Marshal(s.ICAO24)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 192)
	buf = append(buf, `{"icao24":`...)
	buf = append(buf, icao...)

	fields := []struct {
		name  string
		value any
		set   bool
		flag  NullMask
	}{
		{"callsign", s.Callsign, s.Callsign != nil, NullCallsign},
		{"originCountry", s.OriginCountry, s.OriginCountry != nil, NullOriginCountry},
		{"latitude", s.Latitude, s.Latitude != nil, NullLatitude},
		{"longitude", s.Longitude, s.Longitude != nil, NullLongitude},
		{"altitude", s.Altitude, s.Altitude != nil, NullAltitude},
		{"velocity", s.Velocity, s.Velocity != nil, NullVelocity},
		{"heading", s.Heading, s.Heading != nil, NullHeading},
	}

	for _, f := range fields {
		if !f.set && s.Nulls&f.flag == 0 {
			continue
		}
		buf = append(buf, ',', '"')
		buf = append(buf, f.name...)
		buf = append(buf, '"', ':')
		if !f.set {
			buf = append(buf, "null"...)
			continue
		}
		enc, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}

	return append(buf, '}'), nil
}

// Aircraft represents registry metadata for a single transponder.
// Fields correspond to columns of the aircraft-database CSV export.
type Aircraft struct {
	ICAO24           string `json:"icao24"` // Primary key - 6 hex digit ICAO address
	Registration     string `json:"registration,omitempty"`
	ManufacturerName string `json:"manufacturerName,omitempty"`
	Model            string `json:"model,omitempty"`
	TypeCode         string `json:"typecode,omitempty"`
	Operator         string `json:"operator,omitempty"`
	OperatorCallsign string `json:"operatorCallsign,omitempty"`
	Owner            string `json:"owner,omitempty"`
	Country          string `json:"country,omitempty"`
	Built            string `json:"built,omitempty"`
}
