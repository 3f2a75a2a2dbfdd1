//nolint:whitespace // can't make both editor and linter happy
package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/rallytrack/tracking-service-manager-go/log"
	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
	"github.com/rallytrack/tracking-service-manager-go/pkg/repository"
	checkpointrepos "github.com/rallytrack/tracking-service-manager-go/pkg/repository/checkpoint"
	competitorrepos "github.com/rallytrack/tracking-service-manager-go/pkg/repository/competitor"
	positionrepos "github.com/rallytrack/tracking-service-manager-go/pkg/repository/position"
	routerepos "github.com/rallytrack/tracking-service-manager-go/pkg/repository/route"
	"github.com/rallytrack/tracking-service-manager-go/pkg/tracking/cascade"
	"github.com/rallytrack/tracking-service-manager-go/pkg/tracking/history"
	"github.com/rallytrack/tracking-service-manager-go/pkg/tracking/timecode"
	"github.com/rallytrack/tracking-service-manager-go/pkg/tracking/visibility"
	"github.com/rallytrack/tracking-service-manager-go/pkg/utils/cache"
	"github.com/rallytrack/tracking-service-manager-go/pkg/utils/cache/loadercache"
)

// PositionPublisher fans an accepted sample out to live viewers. Publish
// failures never affect the ingest result.
type PositionPublisher interface {
	PublishPosition(ctx context.Context, tc model.TrackingContext,
		competitorID string, sample model.PositionSample) error
}

// ChangeStatusRequest carries one status change, already extracted from the
// wire but not yet validated.
type ChangeStatusRequest struct {
	EventID         string
	DayID           string
	CompetitorID    string
	CheckpointID    string
	CheckpointName  string
	CheckpointOrder int
	Status          string
	LastStatus      string
	Note            *string
}

// PositionInput is the body of a position ingest request. The parts are
// pointered so an absent coordinates or data object is distinguishable
// from zero values and can be rejected.
//
//nolint:tagliatelle // client compatibility
type (
	PositionCoordinates struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	PositionData struct {
		Speed *string `json:"speed"`
		Type  *string `json:"type"`
	}
	PositionInput struct {
		Coordinates *PositionCoordinates `json:"coordinates"`
		Data        *PositionData        `json:"data"`
		TimeStamp   string               `json:"timeStamp"`
	}
)

func (i *PositionInput) validate() error {
	if i.TimeStamp == "" {
		return validationErrorf("timeStamp is required")
	}
	if i.Coordinates == nil || i.Coordinates.Latitude == nil ||
		i.Coordinates.Longitude == nil {
		return validationErrorf("coordinates with latitude and longitude are required")
	}
	if i.Data == nil || i.Data.Speed == nil || i.Data.Type == nil {
		return validationErrorf("data with speed and type are required")
	}
	return nil
}

// RosterEntry is one visible competitor at a checkpoint.
//
//nolint:tagliatelle // client compatibility
type RosterEntry struct {
	ID                    string                 `json:"id"`
	Name                  string                 `json:"name"`
	Order                 int                    `json:"order"`
	Category              string                 `json:"category"`
	Number                string                 `json:"number"`
	TimeToStart           *string                `json:"timeToStart"`
	StatusCompetitor      model.CompetitorStatus `json:"statusCompetitor"`
	CheckpointType        model.CheckpointType   `json:"checkpointType"`
	CheckpointDisable     string                 `json:"checkpointDisable"`
	CheckpointDisableName string                 `json:"checkpointDisableName"`
	PassTime              *time.Time             `json:"passTime"`
	Note                  *string                `json:"note"`
	CreatedAt             time.Time              `json:"createdAt"`
	UpdatedAt             time.Time              `json:"updatedAt"`
}

// Roster is the visible competitor list at a checkpoint. RouteName is nil
// when no route contains the checkpoint.
//
//nolint:tagliatelle // client compatibility
type Roster struct {
	Competitors []RosterEntry `json:"competitors"`
	RouteName   *string       `json:"routeName"`
}

type (
	TrackingService struct {
		pool       *pgxpool.Pool
		prop       *cascade.Propagator
		publisher  PositionPublisher
		routeCache cache.Cache[model.TrackingContext, []*model.Route]
		l          *log.Logger
		now        func() time.Time
	}
	Option func(*TrackingService)
)

func WithPositionPublisher(p PositionPublisher) Option {
	return func(s *TrackingService) {
		s.publisher = p
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *TrackingService) {
		s.l = l
	}
}

// WithClock replaces the wall clock (used by tests).
func WithClock(now func() time.Time) Option {
	return func(s *TrackingService) {
		s.now = now
	}
}

func InitTrackingService(pool *pgxpool.Pool, opts ...Option) *TrackingService {
	ret := &TrackingService{
		pool: pool,
		l:    log.Default().Named("service.tracking"),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.prop = cascade.NewPropagator(
		cascade.WithStore(checkpointrepos.NewStore(pool)),
		cascade.WithLogger(ret.l),
		cascade.WithClock(ret.now))
	// routes of a running day change rarely, so a short lived cache saves a
	// query per roster fetch
	ret.routeCache = loadercache.New(
		loadercache.WithExpiration[model.TrackingContext, []*model.Route](
			30*time.Second),
		loadercache.WithLoader(
			func(tc model.TrackingContext) (*[]*model.Route, error) {
				routes, err := routerepos.LoadByEventDay(context.Background(), pool, tc)
				if err != nil {
					return nil, err
				}
				return &routes, nil
			}),
		loadercache.WithLogger[model.TrackingContext, []*model.Route](
			ret.l.Named("routecache")))
	return ret
}

// ChangeCompetitorStatus validates the request, verifies competitor and
// checkpoint, then runs the status change including both cascades.
func (s *TrackingService) ChangeCompetitorStatus(
	ctx context.Context,
	req *ChangeStatusRequest,
) (*cascade.Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	newStatus, err := model.ParseCompetitorStatus(req.Status)
	if err != nil {
		return nil, validationErrorf("status: %v", err)
	}
	prevStatus, err := model.ParseCompetitorStatus(req.LastStatus)
	if err != nil {
		return nil, validationErrorf("lastStatusCompetitor: %v", err)
	}
	tc := model.TrackingContext{EventID: req.EventID, DayID: req.DayID}
	if _, err := competitorrepos.LoadByID(ctx, s.pool, tc, req.CompetitorID); err != nil {
		return nil, err
	}
	res, err := s.prop.Apply(ctx, tc, cascade.Request{
		CompetitorID:    req.CompetitorID,
		CheckpointID:    req.CheckpointID,
		CheckpointName:  req.CheckpointName,
		CheckpointOrder: req.CheckpointOrder,
		NewStatus:       newStatus,
		PreviousStatus:  prevStatus,
		Note:            req.Note,
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CompetitorTracking returns the visible roster at a checkpoint together
// with the name of the first route containing it.
func (s *TrackingService) CompetitorTracking(
	ctx context.Context,
	tc model.TrackingContext,
	checkpointID string,
) (*Roster, error) {
	if tc.EventID == "" || tc.DayID == "" || checkpointID == "" {
		return nil, validationErrorf("eventId, dayOfRaceId and checkpointId are required")
	}
	competitors, err := competitorrepos.LoadByEventDay(ctx, s.pool, tc)
	if err != nil {
		return nil, err
	}
	now := s.now()
	entries := make([]RosterEntry, 0, len(competitors))
	for _, comp := range competitors {
		cp, err := checkpointrepos.Get(ctx, s.pool, tc, comp.ID, checkpointID)
		if err != nil {
			// competitors without a record at this checkpoint are skipped
			if errors.Is(err, repository.ErrNoData) {
				continue
			}
			return nil, err
		}
		entries = append(entries, RosterEntry{
			ID:                    comp.ID,
			Name:                  comp.Name,
			Order:                 comp.Order,
			Category:              comp.Category,
			Number:                comp.Number,
			TimeToStart:           comp.TimeToStart,
			StatusCompetitor:      cp.StatusCompetitor,
			CheckpointType:        cp.CheckpointType,
			CheckpointDisable:     cp.CheckpointDisable,
			CheckpointDisableName: cp.CheckpointDisableName,
			PassTime:              cp.PassTime,
			Note:                  cp.Note,
			CreatedAt:             now,
			UpdatedAt:             now,
		})
	}
	visible := lo.Filter(entries, func(e RosterEntry, _ int) bool {
		return visibility.IsVisible(e.StatusCompetitor, e.CheckpointType)
	})
	routeName, err := s.lookupRouteName(ctx, tc, checkpointID)
	if err != nil {
		return nil, err
	}
	return &Roster{Competitors: visible, RouteName: routeName}, nil
}

// first route containing the checkpoint wins
func (s *TrackingService) lookupRouteName(
	ctx context.Context,
	tc model.TrackingContext,
	checkpointID string,
) (*string, error) {
	routes, err := s.routeCache.Get(ctx, tc)
	if err != nil {
		return nil, err
	}
	for _, r := range *routes {
		if r.ContainsCheckpoint(checkpointID) {
			return &r.Name, nil
		}
	}
	return nil, nil //nolint:nilnil // absent route is not an error
}

// TrackCompetitorPosition records one telemetry sample: update the current
// position, insert into the bounded history and persist both in one write.
// The fanout afterwards is best-effort.
func (s *TrackingService) TrackCompetitorPosition(
	ctx context.Context,
	tc model.TrackingContext,
	competitorID string,
	input *PositionInput,
) error {
	if tc.EventID == "" || tc.DayID == "" || competitorID == "" {
		return validationErrorf("eventId, dayId and competitorId are required")
	}
	if err := input.validate(); err != nil {
		return err
	}
	key := timecode.NewSampleKey(s.now())
	sample := model.PositionSample{
		ID: timecode.ToID(input.TimeStamp),
		Coordinates: model.Coordinates{
			Latitude:  *input.Coordinates.Latitude,
			Longitude: *input.Coordinates.Longitude,
		},
		Data: model.SampleData{
			Speed: *input.Data.Speed,
			Type:  *input.Data.Type,
		},
		TimeStamp: input.TimeStamp,
	}
	_, hist, err := positionrepos.Load(ctx, s.pool, tc, competitorID)
	if err != nil {
		return err
	}
	hist = history.Insert(hist, key, sample)
	current := &model.PositionCurrent{
		UUID:      key,
		Latitude:  sample.Coordinates.Latitude,
		Longitude: sample.Coordinates.Longitude,
	}
	if err := positionrepos.Save(ctx, s.pool, tc, competitorID, current, hist); err != nil {
		return err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishPosition(ctx, tc, competitorID, sample); err != nil {
			s.l.Warn("position fanout failed",
				log.String("competitor", competitorID), log.ErrorField(err))
		}
	}
	return nil
}

func (r *ChangeStatusRequest) validate() error {
	switch {
	case r.EventID == "":
		return validationErrorf("eventId is required")
	case r.DayID == "":
		return validationErrorf("dayOfRaceId is required")
	case r.CompetitorID == "":
		return validationErrorf("competitorId is required")
	case r.CheckpointID == "":
		return validationErrorf("checkpointId is required")
	case r.CheckpointName == "":
		return validationErrorf("checkpointName is required")
	case r.CheckpointOrder < 0:
		return validationErrorf("orderCheckpoint must not be negative")
	}
	return nil
}
