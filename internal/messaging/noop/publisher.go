// Package noop provides a Publisher used when no broker is configured.
package noop

import (
	"context"

	"github.com/louisbranch/ordercore/internal/messaging"
)

// Publisher discards every envelope.
type Publisher struct{}

// Publish implements messaging.Publisher.
func (Publisher) Publish(_ context.Context, _ ...messaging.Envelope) error { return nil }

// Close implements messaging.Publisher.
func (Publisher) Close() error { return nil }
