package publish

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"
)

// Reading is a published steering value.
type Reading struct {
	Value float64   `json:"value"`
	Text  string    `json:"text"`
	Seq   uint64    `json:"seq"`
	At    time.Time `json:"at"`
}

// MarshalJSON writes a null value for NaN and infinities, which JSON cannot
// represent; Text still carries them.
func (r Reading) MarshalJSON() ([]byte, error) {
	var value *float64
	if !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) {
		value = &r.Value
	}
	return json.Marshal(struct {
		Value *float64  `json:"value"`
		Text  string    `json:"text"`
		Seq   uint64    `json:"seq"`
		At    time.Time `json:"at"`
	}{value, r.Text, r.Seq, r.At})
}

// Channel wraps the outbound Publisher, remembering the last steering value
// and fanning it out to Hub subscribers.
type Channel struct {
	out Publisher
	hub *Hub
	now func() time.Time

	mu     sync.Mutex
	latest Reading
	seq    uint64
}

// NewChannel returns a Channel writing to out. hub may be nil.
func NewChannel(out Publisher, hub *Hub) *Channel {
	return &Channel{out: out, hub: hub, now: time.Now}
}

// Path publishes a directory path for the operator to paste elsewhere.
func (c *Channel) Path(dir string) error {
	if err := c.out.Publish(dir); err != nil {
		return fmt.Errorf("publish path: %w", err)
	}
	return nil
}

// Steer publishes v unchanged; there is no clamping or range check.
func (c *Channel) Steer(v float64) (Reading, error) {
	text := FormatSteer(v)
	if err := c.out.Publish(text); err != nil {
		return Reading{}, fmt.Errorf("publish steering value: %w", err)
	}

	c.mu.Lock()
	c.seq++
	r := Reading{Value: v, Text: text, Seq: c.seq, At: c.now()}
	c.latest = r
	c.mu.Unlock()

	if c.hub != nil {
		c.hub.Broadcast(r)
	}
	return r, nil
}

// Latest returns the last published reading; ok is false before the first.
func (c *Channel) Latest() (r Reading, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.seq > 0
}
