package model

import "time"

// CheckpointStatus is the status record of one competitor at one checkpoint.
// There is exactly one record per (competitor, checkpoint); records are only
// ever overwritten, never deleted.
//
//nolint:tagliatelle // client compatibility
type CheckpointStatus struct {
	ID                    string           `json:"id"`
	Name                  string           `json:"name"`
	Order                 int              `json:"order"`
	CheckpointType        CheckpointType   `json:"checkpointType"`
	StatusCompetitor      CompetitorStatus `json:"statusCompetitor"`
	CheckpointDisable     string           `json:"checkpointDisable"`
	CheckpointDisableName string           `json:"checkpointDisableName"`
	PassTime              *time.Time       `json:"passTime"`
	Note                  *string          `json:"note"`
	UpdatedAt             time.Time        `json:"-"`
}

// Disqualified is true when the record carries an out family status.
// Invariant: CheckpointDisable is non-empty iff Disqualified.
func (c *CheckpointStatus) Disqualified() bool {
	return c.StatusCompetitor.IsOut()
}

//nolint:tagliatelle // client compatibility
type Competitor struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Order       int     `json:"order"`
	Category    string  `json:"category"`
	Number      string  `json:"number"`
	TimeToStart *string `json:"timeToStart"`
}

//nolint:tagliatelle // client compatibility
type Route struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	CheckpointIDs []string `json:"checkpointIds"`
}

// ContainsCheckpoint reports whether the route passes the given checkpoint.
func (r *Route) ContainsCheckpoint(checkpointID string) bool {
	for _, id := range r.CheckpointIDs {
		if id == checkpointID {
			return true
		}
	}
	return false
}

// TrackingContext identifies the tracking scope of one race day of an event.
type TrackingContext struct {
	EventID string
	DayID   string
}
