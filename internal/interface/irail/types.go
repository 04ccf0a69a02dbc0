package irail

import (
	"bytes"
	"encoding/json"
)

// liveboardResponse is the subset of the iRail liveboard payload we read
type liveboardResponse struct {
	Station    string        `json:"station"`
	Timestamp  string        `json:"timestamp"`
	Arrivals   arrivalList   `json:"arrivals"`
	Departures departureList `json:"departures"`
}

type arrivalList struct {
	Number  flexString       `json:"number"`
	Arrival []liveboardEntry `json:"arrival"`
}

type departureList struct {
	Number    flexString       `json:"number"`
	Departure []liveboardEntry `json:"departure"`
}

type liveboardEntry struct {
	ID           flexString   `json:"id"`
	Station      string       `json:"station"`
	Time         flexString   `json:"time"`
	Delay        flexString   `json:"delay"`
	Vehicle      string       `json:"vehicle"`
	VehicleInfo  vehicleInfo  `json:"vehicleinfo"`
	Platform     flexString   `json:"platform"`
	PlatformInfo platformInfo `json:"platforminfo"`
	Canceled     flexString   `json:"canceled"`
	Left         flexString   `json:"left"`
	Arrived      flexString   `json:"arrived"`
	IsExtra      flexString   `json:"isExtra"`
}

type vehicleInfo struct {
	Name      string `json:"name"`
	ShortName string `json:"shortname"`
	Number    string `json:"number"`
	Type      string `json:"type"`
}

type platformInfo struct {
	Name   string     `json:"name"`
	Normal flexString `json:"normal"`
}

// flexString decodes JSON strings, numbers and booleans into their textual form.
// iRail sends most numeric fields as strings, but not consistently.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	if b {
		*f = "1"
	} else {
		*f = "0"
	}
	return nil
}
