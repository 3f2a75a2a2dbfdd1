//nolint:funlen,errcheck //ok for this test code
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
	"github.com/rallytrack/tracking-service-manager-go/pkg/repository"
	checkpointrepos "github.com/rallytrack/tracking-service-manager-go/pkg/repository/checkpoint"
	positionrepos "github.com/rallytrack/tracking-service-manager-go/pkg/repository/position"
	"github.com/rallytrack/tracking-service-manager-go/pkg/tracking/cascade"
	"github.com/rallytrack/tracking-service-manager-go/testsupport/basedata"
	"github.com/rallytrack/tracking-service-manager-go/testsupport/testdb"
)

type capturingPublisher struct {
	published []model.PositionSample
	fail      bool
}

func (p *capturingPublisher) PublishPosition(
	_ context.Context, _ model.TrackingContext, _ string, sample model.PositionSample,
) error {
	if p.fail {
		return errors.New("nats gone")
	}
	p.published = append(p.published, sample)
	return nil
}

func statusChangeReq(tc model.TrackingContext) *ChangeStatusRequest {
	return &ChangeStatusRequest{
		EventID:         tc.EventID,
		DayID:           tc.DayID,
		CompetitorID:    "comp-1",
		CheckpointID:    "cp-3",
		CheckpointName:  "Oasis",
		CheckpointOrder: 3,
		Status:          "out",
		LastStatus:      "none",
	}
}

func TestChangeCompetitorStatusDisqualification(t *testing.T) {
	pool := testdb.InitTestDB()
	tc := basedata.CreateSampleDay(pool)
	srv := InitTrackingService(pool)
	ctx := context.Background()

	res, err := srv.ChangeCompetitorStatus(ctx, statusChangeReq(tc))
	assert.NoError(t, err)
	assert.True(t, res.PrimaryApplied)
	assert.Equal(t, 2, res.PropagatedAbove)
	assert.Empty(t, res.CascadeErrors)

	all, err := checkpointrepos.ListByCompetitor(ctx, pool, tc, "comp-1")
	assert.NoError(t, err)
	for _, cp := range all {
		switch {
		case cp.Order < 3:
			assert.Equal(t, model.StatusNone, cp.StatusCompetitor, cp.ID)
			assert.Empty(t, cp.CheckpointDisable, cp.ID)
		default:
			assert.Equal(t, model.StatusOut, cp.StatusCompetitor, cp.ID)
			assert.Equal(t, "cp-3", cp.CheckpointDisable, cp.ID)
			assert.Equal(t, "Oasis", cp.CheckpointDisableName, cp.ID)
		}
	}
	// the other competitor is untouched
	other, err := checkpointrepos.Get(ctx, pool, tc, "comp-2", "cp-4")
	assert.NoError(t, err)
	assert.Equal(t, model.StatusNone, other.StatusCompetitor)
}

func TestChangeCompetitorStatusReinstatement(t *testing.T) {
	pool := testdb.InitTestDB()
	tc := basedata.CreateSampleDay(pool)
	srv := InitTrackingService(pool)
	ctx := context.Background()

	_, err := srv.ChangeCompetitorStatus(ctx, statusChangeReq(tc))
	assert.NoError(t, err)

	req := statusChangeReq(tc)
	req.Status = "check"
	req.LastStatus = "out"
	res, err := srv.ChangeCompetitorStatus(ctx, req)
	assert.NoError(t, err)
	assert.True(t, res.PrimaryApplied)
	assert.Equal(t, 2, res.ClearedAbove)

	all, err := checkpointrepos.ListByCompetitor(ctx, pool, tc, "comp-1")
	assert.NoError(t, err)
	for _, cp := range all {
		switch {
		case cp.Order == 3:
			assert.Equal(t, model.StatusCheck, cp.StatusCompetitor)
		case cp.Order > 3:
			assert.Equal(t, model.StatusNone, cp.StatusCompetitor, cp.ID)
			assert.Empty(t, cp.CheckpointDisable, cp.ID)
		}
	}
}

func TestChangeCompetitorStatusRejections(t *testing.T) {
	pool := testdb.InitTestDB()
	tc := basedata.CreateSampleDay(pool)
	srv := InitTrackingService(pool)

	tests := []struct {
		name           string
		mod            func(req *ChangeStatusRequest)
		wantValidation bool
		wantNotFound   bool
	}{
		{
			name:           "blank competitor",
			mod:            func(req *ChangeStatusRequest) { req.CompetitorID = "" },
			wantValidation: true,
		},
		{
			name:           "invalid status",
			mod:            func(req *ChangeStatusRequest) { req.Status = "retired" },
			wantValidation: true,
		},
		{
			name:           "invalid previous status",
			mod:            func(req *ChangeStatusRequest) { req.LastStatus = "gone" },
			wantValidation: true,
		},
		{
			name:           "negative order",
			mod:            func(req *ChangeStatusRequest) { req.CheckpointOrder = -1 },
			wantValidation: true,
		},
		{
			name:         "unknown competitor",
			mod:          func(req *ChangeStatusRequest) { req.CompetitorID = "comp-99" },
			wantNotFound: true,
		},
		{
			name:         "unknown checkpoint",
			mod:          func(req *ChangeStatusRequest) { req.CheckpointID = "cp-99" },
			wantNotFound: true,
		},
		{
			name: "order mismatch",
			mod:  func(req *ChangeStatusRequest) { req.CheckpointOrder = 4 },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := statusChangeReq(tc)
			tt.mod(req)
			_, err := srv.ChangeCompetitorStatus(context.Background(), req)
			assert.Error(t, err)
			var vErr *ValidationError
			assert.Equal(t, tt.wantValidation, errors.As(err, &vErr))
			assert.Equal(t, tt.wantNotFound, errors.Is(err, repository.ErrNoData))
			if tt.name == "order mismatch" {
				assert.True(t, errors.Is(err, cascade.ErrOrderMismatch))
			}
			// nothing was written
			got, gerr := checkpointrepos.Get(context.Background(), pool, tc, "comp-1", "cp-3")
			assert.NoError(t, gerr)
			assert.Equal(t, model.StatusNone, got.StatusCompetitor)
		})
	}
}

func TestCompetitorTracking(t *testing.T) {
	pool := testdb.InitTestDB()
	tc := basedata.CreateSampleDay(pool)
	srv := InitTrackingService(pool)
	ctx := context.Background()

	// comp-1 becomes outStart at cp-2: hidden at pass checkpoints,
	// visible at start/finish
	req := statusChangeReq(tc)
	req.CheckpointID = "cp-2"
	req.CheckpointName = "Dune Pass"
	req.CheckpointOrder = 2
	req.Status = "outStart"
	_, err := srv.ChangeCompetitorStatus(ctx, req)
	assert.NoError(t, err)

	roster, err := srv.CompetitorTracking(ctx, tc, "cp-4")
	assert.NoError(t, err)
	assert.NotNil(t, roster.RouteName)
	assert.Equal(t, "Stage 3 - Dunes", *roster.RouteName)
	assert.Len(t, roster.Competitors, 1, "outStart hidden at pass checkpoint")
	assert.Equal(t, "comp-2", roster.Competitors[0].ID)

	roster, err = srv.CompetitorTracking(ctx, tc, "cp-5")
	assert.NoError(t, err)
	assert.Len(t, roster.Competitors, 2, "outStart visible at finish")

	// unknown checkpoint: empty roster, no route
	roster, err = srv.CompetitorTracking(ctx, tc, "cp-99")
	assert.NoError(t, err)
	assert.Empty(t, roster.Competitors)
	assert.Nil(t, roster.RouteName)

	_, err = srv.CompetitorTracking(ctx, tc, "")
	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestCompetitorTrackingStoreFailure(t *testing.T) {
	pool := testdb.InitTestDB()
	tc := basedata.CreateSampleDay(pool)
	srv := InitTrackingService(pool)
	ctx := context.Background()

	// a broken checkpoint store must surface, not shrink the roster
	_, err := pool.Exec(ctx,
		"alter table competitor_checkpoint rename to competitor_checkpoint_bak")
	assert.NoError(t, err)
	defer pool.Exec(ctx,
		"alter table competitor_checkpoint_bak rename to competitor_checkpoint")

	_, err = srv.CompetitorTracking(ctx, tc, "cp-3")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, repository.ErrNoData))
}

func TestTrackCompetitorPosition(t *testing.T) {
	pool := testdb.InitTestDB()
	tc := basedata.CreateSampleDay(pool)
	pub := &capturingPublisher{}
	fixed := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	srv := InitTrackingService(pool,
		WithPositionPublisher(pub),
		WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	input := &PositionInput{
		Coordinates: &PositionCoordinates{
			Latitude:  lo.ToPtr(-24.18),
			Longitude: lo.ToPtr(15.41),
		},
		Data: &PositionData{
			Speed: lo.ToPtr("87 km/h"),
			Type:  lo.ToPtr("gps"),
		},
		TimeStamp: "15/06/2024 10:30:00",
	}
	err := srv.TrackCompetitorPosition(ctx, tc, "comp-1", input)
	assert.NoError(t, err)
	assert.Len(t, pub.published, 1)
	assert.Equal(t, int64(1718447400), pub.published[0].ID)

	cur, hist, err := positionrepos.Load(ctx, pool, tc, "comp-1")
	assert.NoError(t, err)
	assert.Equal(t, "1718447400000", cur.UUID)
	assert.Equal(t, -24.18, cur.Latitude)
	assert.Len(t, hist, 1)

	// publisher failure does not affect the result
	pub.fail = true
	err = srv.TrackCompetitorPosition(ctx, tc, "comp-1", input)
	assert.NoError(t, err)

	// validation
	var vErr *ValidationError
	err = srv.TrackCompetitorPosition(ctx, tc, "", input)
	assert.True(t, errors.As(err, &vErr))
	rejected := []*PositionInput{
		{Coordinates: input.Coordinates, Data: input.Data},
		{Data: input.Data, TimeStamp: input.TimeStamp},
		{
			Coordinates: &PositionCoordinates{Latitude: lo.ToPtr(-24.18)},
			Data:        input.Data,
			TimeStamp:   input.TimeStamp,
		},
		{Coordinates: input.Coordinates, TimeStamp: input.TimeStamp},
		{
			Coordinates: input.Coordinates,
			Data:        &PositionData{Speed: lo.ToPtr("87 km/h")},
			TimeStamp:   input.TimeStamp,
		},
	}
	for _, in := range rejected {
		err = srv.TrackCompetitorPosition(ctx, tc, "comp-1", in)
		assert.True(t, errors.As(err, &vErr))
	}
	// none of the rejected inputs was persisted
	_, hist, err = positionrepos.Load(ctx, pool, tc, "comp-1")
	assert.NoError(t, err)
	assert.Len(t, hist, 1)
}
