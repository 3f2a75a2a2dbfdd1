// Package fanout distributes accepted position samples to live viewers.
package fanout

import (
	"context"
	"fmt"
	"strings"

	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
	"github.com/rallytrack/tracking-service-manager-go/pkg/service"
	"github.com/rallytrack/tracking-service-manager-go/pkg/utils/broadcast"
)

// PositionEvent is one accepted sample with its tracking scope.
type PositionEvent struct {
	TC           model.TrackingContext `json:"-"`
	CompetitorID string                `json:"competitorId"` //nolint:tagliatelle // client compatibility
	Sample       model.PositionSample  `json:"sample"`
}

// Subject returns the NATS subject for one competitor's position stream.
func Subject(tc model.TrackingContext, competitorID string) string {
	return fmt.Sprintf("rtsm.position.%s.%s.%s",
		subjectToken(tc.EventID), subjectToken(tc.DayID), subjectToken(competitorID))
}

// dots and spaces have meaning in NATS subjects
func subjectToken(arg string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '>':
			return '_'
		}
		return r
	}, arg)
}

// LocalBroker fans samples out to in-process subscribers via the generic
// broadcast server.
type LocalBroker struct {
	source chan PositionEvent
	bcst   broadcast.BroadcastServer[PositionEvent]
}

var _ service.PositionPublisher = (*LocalBroker)(nil)

func NewLocalBroker(scope string) *LocalBroker {
	source := make(chan PositionEvent)
	return &LocalBroker{
		source: source,
		bcst:   broadcast.NewBroadcastServer(scope, "position", source),
	}
}

func (b *LocalBroker) PublishPosition(
	ctx context.Context,
	tc model.TrackingContext,
	competitorID string,
	sample model.PositionSample,
) error {
	select {
	case b.source <- PositionEvent{TC: tc, CompetitorID: competitorID, Sample: sample}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *LocalBroker) Subscribe() <-chan PositionEvent {
	return b.bcst.Subscribe()
}

func (b *LocalBroker) CancelSubscription(ch <-chan PositionEvent) {
	b.bcst.CancelSubscription(ch)
}

func (b *LocalBroker) Close() {
	b.bcst.Close()
}

// Combine chains publishers; each is attempted, the first error is returned.
func Combine(pubs ...service.PositionPublisher) service.PositionPublisher {
	return &multiPublisher{pubs: pubs}
}

type multiPublisher struct {
	pubs []service.PositionPublisher
}

func (m *multiPublisher) PublishPosition(
	ctx context.Context,
	tc model.TrackingContext,
	competitorID string,
	sample model.PositionSample,
) error {
	var firstErr error
	for _, p := range m.pubs {
		if err := p.PublishPosition(ctx, tc, competitorID, sample); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
