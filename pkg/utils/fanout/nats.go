//nolint:whitespace // can't make both editor and linter happy
package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/rallytrack/tracking-service-manager-go/log"
	"github.com/rallytrack/tracking-service-manager-go/pkg/model"
	"github.com/rallytrack/tracking-service-manager-go/pkg/service"
)

type (
	NatsPublisher struct {
		conn *nats.Conn
		l    *log.Logger
	}
	NatsOption func(*NatsPublisher)
)

var _ service.PositionPublisher = (*NatsPublisher)(nil)

func WithNatsLogger(l *log.Logger) NatsOption {
	return func(p *NatsPublisher) {
		p.l = l
	}
}

func NewNatsPublisher(url string, opts ...NatsOption) (*NatsPublisher, error) {
	// unique connection name so multiple server instances can be told
	// apart on the NATS monitoring endpoint
	connName := fmt.Sprintf("rtsm-position-fanout-%s", uuid.New().String())
	conn, err := nats.Connect(url, nats.Name(connName))
	if err != nil {
		return nil, err
	}
	ret := &NatsPublisher{
		conn: conn,
		l:    log.Default().Named("fanout.nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.l.Info("connected", log.String("url", conn.ConnectedUrl()))
	return ret, nil
}

func (p *NatsPublisher) PublishPosition(
	_ context.Context,
	tc model.TrackingContext,
	competitorID string,
	sample model.PositionSample,
) error {
	data, err := json.Marshal(PositionEvent{
		TC:           tc,
		CompetitorID: competitorID,
		Sample:       sample,
	})
	if err != nil {
		return err
	}
	return p.conn.Publish(Subject(tc, competitorID), data)
}

func (p *NatsPublisher) Close() {
	p.conn.Close()
}
