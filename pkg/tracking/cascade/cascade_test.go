package cascade

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
)

var testTC = model.TrackingContext{EventID: "ev1", DayID: "day1"}

// memStore mimics the per-record atomicity of the real store: every update
// touches exactly one record, there is no transaction across records.
type memStore struct {
	records map[string]*model.CheckpointStatus
	failOn  map[string]error
	listErr error
	writes  []string
}

func newMemStore(orders ...int) *memStore {
	ret := &memStore{
		records: map[string]*model.CheckpointStatus{},
		failOn:  map[string]error{},
	}
	for _, o := range orders {
		id := cpID(o)
		ret.records[id] = &model.CheckpointStatus{
			ID:               id,
			Name:             fmt.Sprintf("Checkpoint %d", o),
			Order:            o,
			CheckpointType:   model.CheckpointPass,
			StatusCompetitor: model.StatusNone,
		}
	}
	return ret
}

func cpID(order int) string { return fmt.Sprintf("cp-%d", order) }

//nolint:whitespace // signature layout
func (m *memStore) Get(
	_ context.Context, _ model.TrackingContext, _, checkpointID string,
) (*model.CheckpointStatus, error) {
	if rec, ok := m.records[checkpointID]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, fmt.Errorf("checkpoint %s not found", checkpointID)
}

//nolint:whitespace // signature layout
func (m *memStore) ListByCompetitor(
	_ context.Context, _ model.TrackingContext, _ string,
) ([]*model.CheckpointStatus, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	ret := make([]*model.CheckpointStatus, 0, len(m.records))
	for _, rec := range m.records {
		cp := *rec
		ret = append(ret, &cp)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Order < ret[j].Order })
	return ret, nil
}

//nolint:whitespace // signature layout
func (m *memStore) UpdateStatus(
	_ context.Context, _ model.TrackingContext, _, checkpointID string,
	upd StatusUpdate,
) error {
	if err, ok := m.failOn[checkpointID]; ok {
		return err
	}
	rec, ok := m.records[checkpointID]
	if !ok {
		return fmt.Errorf("checkpoint %s not found", checkpointID)
	}
	m.writes = append(m.writes, checkpointID)
	rec.StatusCompetitor = upd.Status
	rec.CheckpointDisable = upd.CheckpointDisable
	rec.CheckpointDisableName = upd.CheckpointDisableName
	if upd.PassTime != nil {
		t := *upd.PassTime
		rec.PassTime = &t
	}
	if upd.Note != nil {
		n := *upd.Note
		rec.Note = &n
	}
	rec.UpdatedAt = upd.UpdatedAt
	return nil
}

func fixedClock() func() time.Time {
	ts := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func newTestPropagator(store StatusStore) *Propagator {
	return NewPropagator(WithStore(store), WithClock(fixedClock()))
}

func outRequest(order int) Request {
	return Request{
		CompetitorID:    "comp1",
		CheckpointID:    cpID(order),
		CheckpointName:  fmt.Sprintf("Checkpoint %d", order),
		CheckpointOrder: order,
		NewStatus:       model.StatusOut,
		PreviousStatus:  model.StatusNone,
	}
}

func TestApplyDisqualificationCascade(t *testing.T) {
	store := newMemStore(1, 2, 3, 4, 5)
	p := newTestPropagator(store)

	res, err := p.Apply(context.Background(), testTC, outRequest(3))
	require.NoError(t, err)
	assert.True(t, res.PrimaryApplied)
	assert.Equal(t, 2, res.PropagatedAbove)
	assert.Empty(t, res.CascadeErrors)

	for _, order := range []int{1, 2} {
		rec := store.records[cpID(order)]
		assert.Equal(t, model.StatusNone, rec.StatusCompetitor, "order %d untouched", order)
		assert.Empty(t, rec.CheckpointDisable)
	}
	target := store.records[cpID(3)]
	assert.Equal(t, model.StatusOut, target.StatusCompetitor)
	assert.Equal(t, cpID(3), target.CheckpointDisable)
	assert.Equal(t, "Checkpoint 3", target.CheckpointDisableName)
	require.NotNil(t, target.PassTime)
	for _, order := range []int{4, 5} {
		rec := store.records[cpID(order)]
		assert.Equal(t, model.StatusOut, rec.StatusCompetitor, "order %d forced out", order)
		assert.Equal(t, cpID(3), rec.CheckpointDisable)
		assert.Equal(t, "Checkpoint 3", rec.CheckpointDisableName)
		assert.Nil(t, rec.PassTime, "cascade writes do not touch passTime")
	}
}

func TestApplyReinstatementCascade(t *testing.T) {
	store := newMemStore(1, 2, 3, 4, 5)
	p := newTestPropagator(store)

	_, err := p.Apply(context.Background(), testTC, outRequest(3))
	require.NoError(t, err)

	res, err := p.Apply(context.Background(), testTC, Request{
		CompetitorID:    "comp1",
		CheckpointID:    cpID(3),
		CheckpointName:  "Checkpoint 3",
		CheckpointOrder: 3,
		NewStatus:       model.StatusCheck,
		PreviousStatus:  model.StatusOut,
	})
	require.NoError(t, err)
	assert.True(t, res.PrimaryApplied)
	assert.Equal(t, 2, res.ClearedAbove)
	assert.Equal(t, 0, res.PropagatedAbove)

	target := store.records[cpID(3)]
	assert.Equal(t, model.StatusCheck, target.StatusCompetitor)
	assert.Empty(t, target.CheckpointDisable)
	assert.Empty(t, target.CheckpointDisableName)
	for _, order := range []int{4, 5} {
		rec := store.records[cpID(order)]
		assert.Equal(t, model.StatusNone, rec.StatusCompetitor, "order %d reverts", order)
		assert.Empty(t, rec.CheckpointDisable)
	}
}

// out -> out at the same checkpoint: the reset of step 2 is overwritten by
// step 3, the net effect above the target depends on the new status only.
func TestApplyOutToOut(t *testing.T) {
	store := newMemStore(1, 2, 3, 4)
	p := newTestPropagator(store)

	_, err := p.Apply(context.Background(), testTC, outRequest(2))
	require.NoError(t, err)

	res, err := p.Apply(context.Background(), testTC, Request{
		CompetitorID:    "comp1",
		CheckpointID:    cpID(2),
		CheckpointName:  "Checkpoint 2",
		CheckpointOrder: 2,
		NewStatus:       model.StatusOutLast,
		PreviousStatus:  model.StatusOut,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ClearedAbove)
	assert.Equal(t, 2, res.PropagatedAbove)
	for _, order := range []int{3, 4} {
		rec := store.records[cpID(order)]
		assert.Equal(t, model.StatusOutLast, rec.StatusCompetitor)
		assert.Equal(t, cpID(2), rec.CheckpointDisable)
	}
}

func TestApplyIdempotent(t *testing.T) {
	store := newMemStore(1, 2, 3, 4, 5)
	p := newTestPropagator(store)
	req := outRequest(3)

	_, err := p.Apply(context.Background(), testTC, req)
	require.NoError(t, err)
	snapshot := map[string]model.CheckpointStatus{}
	for id, rec := range store.records {
		snapshot[id] = *rec
	}

	_, err = p.Apply(context.Background(), testTC, req)
	require.NoError(t, err)
	for id, rec := range store.records {
		assert.Equal(t, snapshot[id], *rec, "record %s changed on replay", id)
	}
}

func TestApplyOrderMismatchRejectedBeforeWrite(t *testing.T) {
	store := newMemStore(1, 2, 3)
	p := newTestPropagator(store)

	req := outRequest(2)
	req.CheckpointOrder = 7

	_, err := p.Apply(context.Background(), testTC, req)
	require.ErrorIs(t, err, ErrOrderMismatch)
	assert.Empty(t, store.writes, "nothing may be mutated on rejection")
}

func TestApplyUnknownCheckpoint(t *testing.T) {
	store := newMemStore(1, 2)
	p := newTestPropagator(store)

	req := outRequest(3)
	_, err := p.Apply(context.Background(), testTC, req)
	assert.Error(t, err)
	assert.Empty(t, store.writes)
}

// A single failing cascade write must not abort the rest of the cascade nor
// the operation: this partial-failure tolerance is part of the contract.
func TestApplyCascadeBestEffort(t *testing.T) {
	store := newMemStore(1, 2, 3, 4, 5)
	store.failOn[cpID(4)] = fmt.Errorf("simulated write failure")
	p := newTestPropagator(store)

	res, err := p.Apply(context.Background(), testTC, outRequest(3))
	require.NoError(t, err, "operation succeeds despite cascade failure")
	assert.True(t, res.PrimaryApplied)
	assert.Equal(t, 1, res.PropagatedAbove)
	require.Len(t, res.CascadeErrors, 1)

	assert.Equal(t, model.StatusOut, store.records[cpID(3)].StatusCompetitor)
	assert.Equal(t, model.StatusNone, store.records[cpID(4)].StatusCompetitor)
	assert.Equal(t, model.StatusOut, store.records[cpID(5)].StatusCompetitor,
		"checkpoints after the failed one are still updated")
}

func TestApplyListFailureAfterPrimary(t *testing.T) {
	store := newMemStore(1, 2, 3)
	store.listErr = fmt.Errorf("simulated list failure")
	p := newTestPropagator(store)

	res, err := p.Apply(context.Background(), testTC, outRequest(2))
	require.NoError(t, err)
	assert.True(t, res.PrimaryApplied)
	assert.Equal(t, 0, res.PropagatedAbove)
	assert.Len(t, res.CascadeErrors, 1)
}

func TestApplyNotePropagation(t *testing.T) {
	store := newMemStore(1, 2, 3)
	p := newTestPropagator(store)

	note := "mechanical failure"
	req := outRequest(1)
	req.Note = &note

	_, err := p.Apply(context.Background(), testTC, req)
	require.NoError(t, err)
	for _, order := range []int{1, 2, 3} {
		rec := store.records[cpID(order)]
		require.NotNil(t, rec.Note, "order %d", order)
		assert.Equal(t, note, *rec.Note)
	}
}

// Two status changes for the same competitor are not isolated against each
// other; per checkpoint the later write wins. This is a documented property
// of the store contract, not a guarantee worth relying on.
func TestApplySequentialLastWriteWins(t *testing.T) {
	store := newMemStore(1, 2, 3)
	p := newTestPropagator(store)

	_, err := p.Apply(context.Background(), testTC, outRequest(1))
	require.NoError(t, err)
	_, err = p.Apply(context.Background(), testTC, Request{
		CompetitorID:    "comp1",
		CheckpointID:    cpID(2),
		CheckpointName:  "Checkpoint 2",
		CheckpointOrder: 2,
		NewStatus:       model.StatusOutLast,
		PreviousStatus:  model.StatusOut,
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusOut, store.records[cpID(1)].StatusCompetitor)
	assert.Equal(t, model.StatusOutLast, store.records[cpID(2)].StatusCompetitor)
	assert.Equal(t, model.StatusOutLast, store.records[cpID(3)].StatusCompetitor)
	assert.Equal(t, cpID(2), store.records[cpID(3)].CheckpointDisable)
}
