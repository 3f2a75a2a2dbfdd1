//nolint:whitespace // can't make both editor and linter happy
package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
	"github.com/rallytrack/tracking-service-manager-go/pkg/repository"
	"github.com/rallytrack/tracking-service-manager-go/pkg/tracking/cascade"
)

var selector = `select c.checkpoint_id, c.name, c.cp_order, c.checkpoint_type,
	c.status, coalesce(c.checkpoint_disable,''), coalesce(c.checkpoint_disable_name,''),
	c.pass_time, c.note, c.updated_at
	from competitor_checkpoint c`

func Create(
	ctx context.Context,
	conn repository.Querier,
	tc model.TrackingContext,
	competitorID string,
	cp *model.CheckpointStatus,
) error {
	_, err := conn.Exec(ctx, `
	insert into competitor_checkpoint (
		event_id, day_id, competitor_id, checkpoint_id, name, cp_order,
		checkpoint_type, status, checkpoint_disable, checkpoint_disable_name,
		pass_time, note
	) values ($1,$2,$3,$4,$5,$6,$7,$8,nullif($9,''),nullif($10,''),$11,$12)
		`,
		tc.EventID, tc.DayID, competitorID, cp.ID, cp.Name, cp.Order,
		string(cp.CheckpointType), string(cp.StatusCompetitor),
		cp.CheckpointDisable, cp.CheckpointDisableName, cp.PassTime, cp.Note,
	)
	return err
}

func Get(
	ctx context.Context,
	conn repository.Querier,
	tc model.TrackingContext,
	competitorID, checkpointID string,
) (*model.CheckpointStatus, error) {
	row := conn.QueryRow(ctx, fmt.Sprintf(
		`%s where c.event_id=$1 and c.day_id=$2
		and c.competitor_id=$3 and c.checkpoint_id=$4`, selector),
		tc.EventID, tc.DayID, competitorID, checkpointID)
	return readData(row)
}

// ListByCompetitor returns all checkpoint records of a competitor ordered by
// checkpoint order.
func ListByCompetitor(
	ctx context.Context,
	conn repository.Querier,
	tc model.TrackingContext,
	competitorID string,
) ([]*model.CheckpointStatus, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(
		`%s where c.event_id=$1 and c.day_id=$2 and c.competitor_id=$3
		order by c.cp_order asc`, selector),
		tc.EventID, tc.DayID, competitorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*model.CheckpointStatus, 0)
	for rows.Next() {
		item, err := readData(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, item)
	}
	return ret, nil
}

// UpdateStatus writes one status record. Empty disable values are stored as
// null; pass time and note are left alone unless provided.
func UpdateStatus(
	ctx context.Context,
	conn repository.Querier,
	tc model.TrackingContext,
	competitorID, checkpointID string,
	upd cascade.StatusUpdate,
) error {
	tag, err := conn.Exec(ctx, `
	update competitor_checkpoint set
		status=$5,
		checkpoint_disable=nullif($6,''),
		checkpoint_disable_name=nullif($7,''),
		pass_time=coalesce($8, pass_time),
		note=coalesce($9, note),
		updated_at=$10
	where event_id=$1 and day_id=$2 and competitor_id=$3 and checkpoint_id=$4
		`,
		tc.EventID, tc.DayID, competitorID, checkpointID,
		string(upd.Status), upd.CheckpointDisable, upd.CheckpointDisableName,
		upd.PassTime, upd.Note, upd.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNoData
	}
	return nil
}

func readData(row pgx.Row) (*model.CheckpointStatus, error) {
	var item model.CheckpointStatus
	var status, cpType string
	if err := row.Scan(&item.ID, &item.Name, &item.Order, &cpType,
		&status, &item.CheckpointDisable, &item.CheckpointDisableName,
		&item.PassTime, &item.Note, &item.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNoData
		}
		return nil, err
	}
	item.StatusCompetitor = model.CompetitorStatus(status)
	item.CheckpointType = model.CheckpointType(cpType)
	return &item, nil
}

// Store adapts the package functions to the cascade.StatusStore contract.
type Store struct {
	conn repository.Querier
}

var _ cascade.StatusStore = (*Store)(nil)

func NewStore(conn repository.Querier) *Store {
	return &Store{conn: conn}
}

func (s *Store) Get(
	ctx context.Context, tc model.TrackingContext, competitorID, checkpointID string,
) (*model.CheckpointStatus, error) {
	return Get(ctx, s.conn, tc, competitorID, checkpointID)
}

func (s *Store) ListByCompetitor(
	ctx context.Context, tc model.TrackingContext, competitorID string,
) ([]*model.CheckpointStatus, error) {
	return ListByCompetitor(ctx, s.conn, tc, competitorID)
}

func (s *Store) UpdateStatus(
	ctx context.Context, tc model.TrackingContext,
	competitorID, checkpointID string, upd cascade.StatusUpdate,
) error {
	return UpdateStatus(ctx, s.conn, tc, competitorID, checkpointID, upd)
}
