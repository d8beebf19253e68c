package parameters

import (
	"context"
	"encoding/json"
	"fmt"

	"prodline-server/internal/modules/parameters/service"
	"prodline-server/internal/modules/parameters/types"
)

// MessagePublisher sends a payload to a subtopic of the broker's base topic.
type MessagePublisher interface {
	Publish(ctx context.Context, subtopic string, payload []byte) error
}

type readingPublisher struct {
	pub MessagePublisher
}

// NewReadingPublisher announces each stored reading as JSON on
// <base>/measured or <base>/target.
func NewReadingPublisher(pub MessagePublisher) service.Publisher {
	return &readingPublisher{pub: pub}
}

func (p *readingPublisher) Publish(ctx context.Context, r types.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading %d: %w", r.ID, err)
	}
	return p.pub.Publish(ctx, types.KindOf(r.IsTarget).String(), payload)
}
