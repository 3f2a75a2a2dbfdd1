package model

import "fmt"

// CompetitorStatus is the status of a competitor at a single checkpoint.
// The out* values mark a disqualification originating at some checkpoint.
type CompetitorStatus string

const (
	StatusNone       CompetitorStatus = "none"
	StatusNoneStart  CompetitorStatus = "noneStart"
	StatusNoneLast   CompetitorStatus = "noneLast"
	StatusCheck      CompetitorStatus = "check"
	StatusCheckStart CompetitorStatus = "checkStart"
	StatusCheckLast  CompetitorStatus = "checkLast"
	StatusOut        CompetitorStatus = "out"
	StatusOutStart   CompetitorStatus = "outStart"
	StatusOutLast    CompetitorStatus = "outLast"
)

//nolint:gochecknoglobals // closed enum
var validStatuses = []CompetitorStatus{
	StatusNone, StatusNoneStart, StatusNoneLast,
	StatusCheck, StatusCheckStart, StatusCheckLast,
	StatusOut, StatusOutStart, StatusOutLast,
}

func ValidStatuses() []CompetitorStatus {
	ret := make([]CompetitorStatus, len(validStatuses))
	copy(ret, validStatuses)
	return ret
}

// ParseCompetitorStatus rejects anything outside the closed enum.
func ParseCompetitorStatus(arg string) (CompetitorStatus, error) {
	for _, s := range validStatuses {
		if string(s) == arg {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid competitor status %q", arg)
}

// IsOut reports whether the status belongs to the out family.
func (s CompetitorStatus) IsOut() bool {
	return s == StatusOut || s == StatusOutStart || s == StatusOutLast
}

// CheckpointType describes the role of a checkpoint along a route.
type CheckpointType string

const (
	CheckpointStart      CheckpointType = "start"
	CheckpointPass       CheckpointType = "pass"
	CheckpointTimer      CheckpointType = "timer"
	CheckpointStartTimer CheckpointType = "startTimer"
	CheckpointEndTimer   CheckpointType = "endTimer"
	CheckpointFinish     CheckpointType = "finish"
)

func ParseCheckpointType(arg string) (CheckpointType, error) {
	switch CheckpointType(arg) {
	case CheckpointStart, CheckpointPass, CheckpointTimer,
		CheckpointStartTimer, CheckpointEndTimer, CheckpointFinish:
		return CheckpointType(arg), nil
	}
	return "", fmt.Errorf("invalid checkpoint type %q", arg)
}
