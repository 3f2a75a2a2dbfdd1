package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
)

func TestSubject(t *testing.T) {
	tc := model.TrackingContext{EventID: "dakar-classic", DayID: "day-3"}
	assert.Equal(t, "rtsm.position.dakar-classic.day-3.comp-1", Subject(tc, "comp-1"))

	tc = model.TrackingContext{EventID: "rally 2024", DayID: "day.1"}
	assert.Equal(t, "rtsm.position.rally_2024.day_1.c_1", Subject(tc, "c*1"))
}

func TestLocalBroker(t *testing.T) {
	broker := NewLocalBroker("testday")
	defer broker.Close()
	sub := broker.Subscribe()

	tc := model.TrackingContext{EventID: "ev-1", DayID: "day-1"}
	sample := model.PositionSample{ID: 42, TimeStamp: "15/06/2024 10:30:00"}

	go func() {
		_ = broker.PublishPosition(context.Background(), tc, "comp-1", sample)
	}()

	select {
	case got := <-sub:
		assert.Equal(t, "comp-1", got.CompetitorID)
		assert.Equal(t, int64(42), got.Sample.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	broker.CancelSubscription(sub)
}
