//nolint:whitespace // can't make both editor and linter happy
package route

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
	"github.com/rallytrack/tracking-service-manager-go/pkg/repository"
)

var selector = `select r.route_id, r.name, r.checkpoint_ids from route r`

func Create(
	ctx context.Context,
	conn repository.Querier,
	tc model.TrackingContext,
	r *model.Route,
) error {
	_, err := conn.Exec(ctx, `
	insert into route (event_id, day_id, route_id, name, checkpoint_ids)
	values ($1,$2,$3,$4,$5)
		`,
		tc.EventID, tc.DayID, r.ID, r.Name, r.CheckpointIDs)
	return err
}

// LoadByEventDay returns all routes of a day. The order is stable so that a
// first-match lookup over routes is deterministic.
func LoadByEventDay(
	ctx context.Context,
	conn repository.Querier,
	tc model.TrackingContext,
) ([]*model.Route, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(
		`%s where r.event_id=$1 and r.day_id=$2 order by r.route_id asc`,
		selector),
		tc.EventID, tc.DayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.Route, 0)
	for rows.Next() {
		item, err := readData(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, nil
}

func readData(row pgx.Row) (*model.Route, error) {
	var item model.Route
	if err := row.Scan(&item.ID, &item.Name, &item.CheckpointIDs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNoData
		}
		return nil, err
	}
	return &item, nil
}
