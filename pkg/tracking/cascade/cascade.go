// Package cascade propagates checkpoint status changes forward along the
// route.
//
// There is no transaction around a cascade: the store issues independent
// per-record writes in sequence. Two concurrent status changes for the same
// competitor can interleave; the later write observed by the store wins per
// checkpoint (last-write-wins). Callers depend on that behavior, so it stays.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rallytrack/tracking-service-manager-go/log"
	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
)

var ErrOrderMismatch = errors.New("checkpoint order mismatch")

// StatusUpdate is the set of fields a single status write may touch.
// CheckpointDisable/CheckpointDisableName are cleared when empty. PassTime
// and Note are only written when non-nil.
type StatusUpdate struct {
	Status                model.CompetitorStatus
	CheckpointDisable     string
	CheckpointDisableName string
	PassTime              *time.Time
	Note                  *string
	UpdatedAt             time.Time
}

// StatusStore is the slice of the checkpoint repository the propagator needs.
// A ListByCompetitor snapshot is stale the instant the first write goes out.
type StatusStore interface {
	Get(ctx context.Context, tc model.TrackingContext, competitorID, checkpointID string) (
		*model.CheckpointStatus, error)
	ListByCompetitor(ctx context.Context, tc model.TrackingContext, competitorID string) (
		[]*model.CheckpointStatus, error)
	UpdateStatus(ctx context.Context, tc model.TrackingContext,
		competitorID, checkpointID string, upd StatusUpdate) error
}

// Request describes one status change at one checkpoint.
type Request struct {
	CompetitorID    string
	CheckpointID    string
	CheckpointName  string
	CheckpointOrder int
	NewStatus       model.CompetitorStatus
	PreviousStatus  model.CompetitorStatus
	Note            *string
}

// Result reports what a status change did. CascadeErrors holds the swallowed
// per-record failures; the operation as a whole still counts as success once
// the target update went through.
type Result struct {
	PrimaryApplied  bool
	ClearedAbove    int
	PropagatedAbove int
	CascadeErrors   []error
}

type (
	Propagator struct {
		store StatusStore
		l     *log.Logger
		now   func() time.Time
	}
	Option func(*Propagator)
)

func WithStore(store StatusStore) Option {
	return func(p *Propagator) {
		p.store = store
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Propagator) {
		p.l = l
	}
}

// WithClock replaces the wall clock (used by tests).
func WithClock(now func() time.Time) Option {
	return func(p *Propagator) {
		p.now = now
	}
}

func NewPropagator(opts ...Option) *Propagator {
	ret := &Propagator{
		l:   log.Default().Named("tracking.cascade"),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Apply performs the status change:
//  1. update the named checkpoint (status, passTime, disable marker, note)
//  2. if the previous status was out*, reset every higher-order checkpoint
//     to none and clear its disable marker
//  3. if the new status is out*, force every higher-order checkpoint to the
//     new status with the target checkpoint as disable marker
//
// Steps 2 and 3 run independently; when both trigger, 3 overwrites what 2
// reset, so the net effect above the target depends on the new status only.
// Failures within 2 and 3 are logged, collected and swallowed: once the
// target update succeeded the call reports success.
//
//nolint:funlen // the three steps belong together
func (p *Propagator) Apply(
	ctx context.Context,
	tc model.TrackingContext,
	req Request,
) (*Result, error) {
	target, err := p.store.Get(ctx, tc, req.CompetitorID, req.CheckpointID)
	if err != nil {
		return nil, err
	}
	// reject before mutating anything
	if target.Order != req.CheckpointOrder {
		return nil, fmt.Errorf("%w: stored %d, got %d",
			ErrOrderMismatch, target.Order, req.CheckpointOrder)
	}

	now := p.now()
	upd := StatusUpdate{
		Status:    req.NewStatus,
		PassTime:  &now,
		Note:      req.Note,
		UpdatedAt: now,
	}
	if req.NewStatus.IsOut() {
		upd.CheckpointDisable = req.CheckpointID
		upd.CheckpointDisableName = req.CheckpointName
	}
	if err := p.store.UpdateStatus(ctx, tc,
		req.CompetitorID, req.CheckpointID, upd); err != nil {
		return nil, err
	}
	ret := &Result{PrimaryApplied: true}

	if req.PreviousStatus.IsOut() {
		p.clearAbove(ctx, tc, req, now, ret)
	}
	if req.NewStatus.IsOut() {
		p.propagateAbove(ctx, tc, req, now, ret)
	}
	if len(ret.CascadeErrors) > 0 {
		p.l.Warn("cascade finished with errors",
			log.String("competitor", req.CompetitorID),
			log.String("checkpoint", req.CheckpointID),
			log.Int("errors", len(ret.CascadeErrors)))
	}
	return ret, nil
}

// clearAbove resets every checkpoint beyond the target to none.
func (p *Propagator) clearAbove(
	ctx context.Context,
	tc model.TrackingContext,
	req Request,
	now time.Time,
	res *Result,
) {
	all, err := p.store.ListByCompetitor(ctx, tc, req.CompetitorID)
	if err != nil {
		p.l.Error("could not list checkpoints for reinstatement",
			log.String("competitor", req.CompetitorID), log.ErrorField(err))
		res.CascadeErrors = append(res.CascadeErrors, err)
		return
	}
	for _, cp := range all {
		if cp.Order <= req.CheckpointOrder {
			continue
		}
		upd := StatusUpdate{Status: model.StatusNone, UpdatedAt: now}
		if err := p.store.UpdateStatus(ctx, tc,
			req.CompetitorID, cp.ID, upd); err != nil {
			p.l.Error("could not reset checkpoint",
				log.String("competitor", req.CompetitorID),
				log.String("checkpoint", cp.ID),
				log.ErrorField(err))
			res.CascadeErrors = append(res.CascadeErrors, err)
			continue
		}
		res.ClearedAbove++
	}
}

// propagateAbove forces the new out status onto every checkpoint beyond the
// target.
func (p *Propagator) propagateAbove(
	ctx context.Context,
	tc model.TrackingContext,
	req Request,
	now time.Time,
	res *Result,
) {
	all, err := p.store.ListByCompetitor(ctx, tc, req.CompetitorID)
	if err != nil {
		p.l.Error("could not list checkpoints for disqualification",
			log.String("competitor", req.CompetitorID), log.ErrorField(err))
		res.CascadeErrors = append(res.CascadeErrors, err)
		return
	}
	for _, cp := range all {
		if cp.Order <= req.CheckpointOrder {
			continue
		}
		upd := StatusUpdate{
			Status:                req.NewStatus,
			CheckpointDisable:     req.CheckpointID,
			CheckpointDisableName: req.CheckpointName,
			Note:                  req.Note,
			UpdatedAt:             now,
		}
		if err := p.store.UpdateStatus(ctx, tc,
			req.CompetitorID, cp.ID, upd); err != nil {
			p.l.Error("could not propagate disqualification",
				log.String("competitor", req.CompetitorID),
				log.String("checkpoint", cp.ID),
				log.ErrorField(err))
			res.CascadeErrors = append(res.CascadeErrors, err)
			continue
		}
		res.PropagatedAbove++
	}
}
