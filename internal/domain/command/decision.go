package command

import (
	"errors"

	"github.com/louisbranch/ordercore/internal/domain/event"
)

// Shared rejection codes used by deciders regardless of command type.
const (
	// RejectionCodePayloadDecodeFailed indicates the payload could not be
	// decoded into the command's expected shape.
	RejectionCodePayloadDecodeFailed = "PAYLOAD_DECODE_FAILED"
	// RejectionCodeCommandTypeUnsupported indicates the decider does not
	// handle the command type.
	RejectionCodeCommandTypeUnsupported = "COMMAND_TYPE_UNSUPPORTED"
)

// Decision represents the pure outcome of handling a command.
type Decision struct {
	Events     []event.Event
	Rejections []Rejection
}

// Rejection captures a domain-level reason a command was declined.
type Rejection struct {
	Code    string
	Message string
}

// Validate reports whether the decision carries an outcome. A decision with
// neither events nor rejections is a decider bug.
func (d Decision) Validate() error {
	if len(d.Events) == 0 && len(d.Rejections) == 0 {
		return errors.New("decision must carry events or rejections")
	}
	return nil
}

// Accept returns a decision that emits the provided events.
func Accept(events ...event.Event) Decision {
	return Decision{Events: append([]event.Event(nil), events...)}
}

// Reject returns a decision that carries the provided rejections.
func Reject(rejections ...Rejection) Decision {
	return Decision{Rejections: append([]Rejection(nil), rejections...)}
}
