package parameters

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"prodline-server/internal/modules/parameters/types"
)

type recordingPublisher struct {
	subtopic string
	payload  []byte
	err      error
}

func (r *recordingPublisher) Publish(_ context.Context, subtopic string, payload []byte) error {
	r.subtopic = subtopic
	r.payload = payload
	return r.err
}

func TestReadingPublisher(t *testing.T) {
	tests := []struct {
		name     string
		isTarget bool
		want     string
	}{
		{"measured", false, "measured"},
		{"target", true, "target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingPublisher{}
			r := types.Reading{
				ID:        7,
				Values:    types.Values{Temperature: 25, Humidity: 60, Pressure: 1013, Speed: 100},
				Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				IsTarget:  tt.isTarget,
			}

			if err := NewReadingPublisher(rec).Publish(context.Background(), r); err != nil {
				t.Fatalf("Publish() = %v; want nil", err)
			}
			if rec.subtopic != tt.want {
				t.Errorf("subtopic = %q; want %q", rec.subtopic, tt.want)
			}
			var got types.Reading
			if err := json.Unmarshal(rec.payload, &got); err != nil {
				t.Fatalf("payload is not a reading: %v", err)
			}
			if got.ID != r.ID || got.Values != r.Values || got.IsTarget != r.IsTarget || !got.Timestamp.Equal(r.Timestamp) {
				t.Errorf("payload = %+v; want %+v", got, r)
			}
		})
	}
}

func TestReadingPublisher_error(t *testing.T) {
	want := errors.New("not connected")
	err := NewReadingPublisher(&recordingPublisher{err: want}).Publish(context.Background(), types.Reading{})
	if !errors.Is(err, want) {
		t.Fatalf("Publish() = %v; want %v", err, want)
	}
}
