// Package visibility decides which competitors an official sees at a
// checkpoint.
package visibility

import (
	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
)

// IsVisible reports whether a competitor with the given status shows up on
// the roster of a checkpoint of the given type.
//
// Rules:
//   - out: visible at every checkpoint
//   - outStart: visible only at start and finish checkpoints
//   - everything else: always visible
func IsVisible(status model.CompetitorStatus, cpType model.CheckpointType) bool {
	if status == model.StatusOut {
		return true
	}
	if status == model.StatusOutStart {
		return cpType == model.CheckpointStart || cpType == model.CheckpointFinish
	}
	return true
}
