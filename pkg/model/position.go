package model

// Coordinates is a GPS position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SampleData carries the non-positional part of a telemetry sample.
// Speed arrives as a preformatted string from the tracker app.
type SampleData struct {
	Speed string `json:"speed"`
	Type  string `json:"type"`
}

// PositionSample is one immutable telemetry reading. ID is derived from
// TimeStamp and defines the ordering within the history.
//
//nolint:tagliatelle // client compatibility
type PositionSample struct {
	ID          int64       `json:"id"`
	Coordinates Coordinates `json:"coordinates"`
	Data        SampleData  `json:"data"`
	TimeStamp   string      `json:"timeStamp"`
}

// PositionCurrent is the latest known position of a competitor.
type PositionCurrent struct {
	UUID      string  `json:"uuid"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PositionHistory maps sanitized sample keys to samples. Keys carry no
// ordering; the sample ID does.
type PositionHistory map[string]PositionSample
