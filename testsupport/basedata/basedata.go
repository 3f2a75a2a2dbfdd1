package basedata

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
	checkpointrepos "github.com/rallytrack/tracking-service-manager-go/pkg/repository/checkpoint"
	competitorrepos "github.com/rallytrack/tracking-service-manager-go/pkg/repository/competitor"
	routerepos "github.com/rallytrack/tracking-service-manager-go/pkg/repository/route"
)

func SampleTrackingContext() model.TrackingContext {
	return model.TrackingContext{EventID: "dakar-classic", DayID: "day-3"}
}

func SampleCompetitors() []*model.Competitor {
	tts := "08:05:00"
	return []*model.Competitor{
		{ID: "comp-1", Name: "Crew One", Order: 1, Category: "T1", Number: "101", TimeToStart: &tts},
		{ID: "comp-2", Name: "Crew Two", Order: 2, Category: "T2", Number: "202"},
	}
}

// SampleCheckpoints returns the five checkpoints of the sample route in
// course order, all without competitor status.
func SampleCheckpoints() []*model.CheckpointStatus {
	return []*model.CheckpointStatus{
		{ID: "cp-1", Name: "Start", Order: 1, CheckpointType: model.CheckpointStart, StatusCompetitor: model.StatusNone},
		{ID: "cp-2", Name: "Dune Pass", Order: 2, CheckpointType: model.CheckpointPass, StatusCompetitor: model.StatusNone},
		{ID: "cp-3", Name: "Oasis", Order: 3, CheckpointType: model.CheckpointTimer, StatusCompetitor: model.StatusNone},
		{ID: "cp-4", Name: "Canyon", Order: 4, CheckpointType: model.CheckpointPass, StatusCompetitor: model.StatusNone},
		{ID: "cp-5", Name: "Finish", Order: 5, CheckpointType: model.CheckpointFinish, StatusCompetitor: model.StatusNone},
	}
}

func SampleRoute() *model.Route {
	return &model.Route{
		ID:            "route-1",
		Name:          "Stage 3 - Dunes",
		CheckpointIDs: []string{"cp-1", "cp-2", "cp-3", "cp-4", "cp-5"},
	}
}

// CreateSampleDay seeds a complete day: competitors, their checkpoint
// records and the route.
func CreateSampleDay(db *pgxpool.Pool) model.TrackingContext {
	ctx := context.Background()
	tc := SampleTrackingContext()
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		for _, comp := range SampleCompetitors() {
			if err := competitorrepos.Create(ctx, tx, tc, comp); err != nil {
				return err
			}
			for _, cp := range SampleCheckpoints() {
				if err := checkpointrepos.Create(ctx, tx, tc, comp.ID, cp); err != nil {
					return err
				}
			}
		}
		return routerepos.Create(ctx, tx, tc, SampleRoute())
	})
	if err != nil {
		log.Fatalf("createSampleDay: %v\n", err)
	}
	return tc
}
