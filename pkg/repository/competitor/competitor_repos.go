//nolint:whitespace // can't make both editor and linter happy
package competitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
	"github.com/rallytrack/tracking-service-manager-go/pkg/repository"
)

var selector = `select c.competitor_id, c.name, c.c_order, c.category,
	c.number, c.time_to_start
	from competitor c`

func Create(
	ctx context.Context,
	conn repository.Querier,
	tc model.TrackingContext,
	comp *model.Competitor,
) error {
	_, err := conn.Exec(ctx, `
	insert into competitor (
		event_id, day_id, competitor_id, name, c_order, category, number,
		time_to_start
	) values ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
		tc.EventID, tc.DayID, comp.ID, comp.Name, comp.Order,
		comp.Category, comp.Number, comp.TimeToStart)
	return err
}

func LoadByID(
	ctx context.Context,
	conn repository.Querier,
	tc model.TrackingContext,
	competitorID string,
) (*model.Competitor, error) {
	row := conn.QueryRow(ctx, fmt.Sprintf(
		`%s where c.event_id=$1 and c.day_id=$2 and c.competitor_id=$3`,
		selector),
		tc.EventID, tc.DayID, competitorID)
	return readData(row)
}

// LoadByEventDay returns the roster of a day ordered by the start order.
func LoadByEventDay(
	ctx context.Context,
	conn repository.Querier,
	tc model.TrackingContext,
) ([]*model.Competitor, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(
		`%s where c.event_id=$1 and c.day_id=$2 order by c.c_order asc`,
		selector),
		tc.EventID, tc.DayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.Competitor, 0)
	for rows.Next() {
		item, err := readData(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, nil
}

func readData(row pgx.Row) (*model.Competitor, error) {
	var item model.Competitor
	if err := row.Scan(&item.ID, &item.Name, &item.Order, &item.Category,
		&item.Number, &item.TimeToStart); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNoData
		}
		return nil, err
	}
	return &item, nil
}
