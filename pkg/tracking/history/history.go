// Package history holds the pure logic for a competitor's bounded position
// history: decoding stored shapes, inserting samples and evicting overflow.
package history

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/samber/lo"

	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
	"github.com/rallytrack/tracking-service-manager-go/pkg/tracking/timecode"
)

// MaxEntries bounds the history size per competitor.
const MaxEntries = 2000

// legacy timestamp used when a converted entry carries none
const defaultTimeStamp = "01/01/1970 00:00:00"

// legacyEntry is the list-shaped form older clients wrote.
type legacyEntry struct {
	UUID        string            `json:"uuid"`
	Coordinates model.Coordinates `json:"coordinates"`
	Data        model.SampleData  `json:"data"`
	TimeStamp   string            `json:"timeStamp"`
}

// FromJSON decodes a stored historial value. The map shape is decoded as is;
// the legacy list shape is converted on the fly (key from the entry's uuid,
// positional index as fallback). Anything else yields an empty history.
func FromJSON(data []byte) model.PositionHistory {
	if len(data) == 0 {
		return model.PositionHistory{}
	}
	var ret model.PositionHistory
	if err := json.Unmarshal(data, &ret); err == nil {
		return ret
	}
	var list []legacyEntry
	if err := json.Unmarshal(data, &list); err == nil {
		return fromLegacyList(list)
	}
	return model.PositionHistory{}
}

func fromLegacyList(list []legacyEntry) model.PositionHistory {
	ret := make(model.PositionHistory, len(list))
	for i, entry := range list {
		key := entry.UUID
		if key == "" {
			key = strconv.Itoa(i)
		}
		ts := entry.TimeStamp
		if ts == "" {
			ts = defaultTimeStamp
		}
		ret[timecode.SanitizeKey(key)] = model.PositionSample{
			ID:          timecode.ToID(ts),
			Coordinates: entry.Coordinates,
			Data:        entry.Data,
			TimeStamp:   entry.TimeStamp,
		}
	}
	return ret
}

// Insert adds a sample under its sanitized key and evicts overflow.
func Insert(h model.PositionHistory, key string, sample model.PositionSample) model.PositionHistory {
	if h == nil {
		h = model.PositionHistory{}
	}
	h[timecode.SanitizeKey(key)] = sample
	return Evict(h)
}

// Evict trims the history to the newest MaxEntries samples by ascending id.
// This is a full re-sort on every overflow, not a ring buffer; fine for the
// one-sample-per-write rate, and the retained set must not change when the
// implementation does.
func Evict(h model.PositionHistory) model.PositionHistory {
	if len(h) <= MaxEntries {
		return h
	}
	type keyed struct {
		key    string
		sample model.PositionSample
	}
	entries := lo.MapToSlice(h, func(k string, v model.PositionSample) keyed {
		return keyed{key: k, sample: v}
	})
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].sample.ID != entries[j].sample.ID {
			return entries[i].sample.ID < entries[j].sample.ID
		}
		return entries[i].key < entries[j].key
	})
	entries = entries[len(entries)-MaxEntries:]
	ret := make(model.PositionHistory, MaxEntries)
	for _, e := range entries {
		ret[e.key] = e.sample
	}
	return ret
}
