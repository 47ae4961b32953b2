// Package fanout delivers realtime game events to connected clients
// through a pluggable publish/subscribe relay. Delivery is best-effort:
// a failed send never rolls back the mutation that produced the event.
package fanout

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Delivery is the outcome of one send attempt. StatusCode follows HTTP
// semantics regardless of driver; anything >= 300 is a failure.
type Delivery struct {
	StatusCode int
	Err        error
}

// OK reports whether the event was accepted by the relay.
func (d Delivery) OK() bool {
	return d.Err == nil && d.StatusCode < 300
}

// Publisher sends one event on a game's channel.
type Publisher interface {
	Send(ctx context.Context, channel int64, event Event) Delivery
}

// delivered is the success outcome shared by the non-HTTP drivers.
var delivered = Delivery{StatusCode: http.StatusOK}

// Notify sends event on channel under the configured ordering policy.
// With sync true the send happens before the caller acknowledges its own
// request and the outcome is returned; otherwise delivery runs in the
// background and the result is nil. Failures are logged either way and
// never undo the mutation that produced the event.
func Notify(ctx context.Context, p Publisher, channel int64, event Event, sync bool) *Delivery {
	if sync {
		d := p.Send(ctx, channel, event)
		if !d.OK() {
			logDeliveryFailure(d, channel, event)
		}
		return &d
	}

	go func() {
		d := p.Send(context.WithoutCancel(ctx), channel, event)
		if !d.OK() {
			logDeliveryFailure(d, channel, event)
		}
	}()
	return nil
}

func logDeliveryFailure(d Delivery, channel int64, event Event) {
	log.Warn().
		Err(d.Err).
		Int("status", d.StatusCode).
		Int64("channel", channel).
		Str("event", string(event.Kind)).
		Msg("fanout delivery failed")
}
