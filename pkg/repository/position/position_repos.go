//nolint:whitespace // can't make both editor and linter happy
package position

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
	"github.com/rallytrack/tracking-service-manager-go/pkg/repository"
	"github.com/rallytrack/tracking-service-manager-go/pkg/tracking/history"
)

// Load returns a competitor's current position and decoded history. A missing
// row is not an error: the first sample of a competitor creates it.
func Load(
	ctx context.Context,
	conn repository.Querier,
	tc model.TrackingContext,
	competitorID string,
) (*model.PositionCurrent, model.PositionHistory, error) {
	var current, historial []byte
	row := conn.QueryRow(ctx, `
	select p.current, p.historial from competitor_position p
	where p.event_id=$1 and p.day_id=$2 and p.competitor_id=$3
		`,
		tc.EventID, tc.DayID, competitorID)
	if err := row.Scan(&current, &historial); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.PositionHistory{}, nil
		}
		return nil, nil, err
	}
	// a json null leaves cur nil; a malformed value counts as absent
	var cur *model.PositionCurrent
	if len(current) > 0 {
		//nolint:errcheck // see above
		json.Unmarshal(current, &cur)
	}
	return cur, history.FromJSON(historial), nil
}

// Save upserts current and historial in one statement.
func Save(
	ctx context.Context,
	conn repository.Querier,
	tc model.TrackingContext,
	competitorID string,
	current *model.PositionCurrent,
	hist model.PositionHistory,
) error {
	curData, err := json.Marshal(current)
	if err != nil {
		return err
	}
	histData, err := json.Marshal(hist)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, `
	insert into competitor_position (
		event_id, day_id, competitor_id, current, historial, updated_at
	) values ($1,$2,$3,$4,$5,$6)
	on conflict (event_id, day_id, competitor_id) do update
	set current=excluded.current, historial=excluded.historial,
		updated_at=excluded.updated_at
		`,
		tc.EventID, tc.DayID, competitorID, curData, histData, time.Now())
	return err
}
