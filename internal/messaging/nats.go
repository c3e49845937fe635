package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSSink публикует исходящие сообщения в subject NATS для внешних потребителей.
type NATSSink struct {
	nc      *nats.Conn
	subject string
}

func NewNATSSink(url, subject string) (*NATSSink, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("flow-agent"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, err
	}
	if subject == "" {
		subject = "flow.pipeline.events"
	}
	return &NATSSink{nc: nc, subject: subject}, nil
}

// Send публикует в подтему по типу сообщения, например flow.pipeline.events.PIPELINE_ERROR.
func (s *NATSSink) Send(_ context.Context, msg OutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.nc.Publish(s.subject+"."+string(msg.Type), data)
}

func (s *NATSSink) Close() error {
	return s.nc.Drain()
}
