package app

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/ordercore/internal/domain/command"
	"github.com/louisbranch/ordercore/internal/domain/engine"
	"github.com/louisbranch/ordercore/internal/domain/event"
	"github.com/louisbranch/ordercore/internal/domain/order"
	"github.com/louisbranch/ordercore/internal/messaging"
	apperrors "github.com/louisbranch/ordercore/internal/platform/errors"
	"github.com/louisbranch/ordercore/internal/platform/requestctx"
	"github.com/louisbranch/ordercore/internal/platform/timeouts"
)

var tracer = otel.Tracer("github.com/louisbranch/ordercore/internal/app")

var (
	// ErrHandlerRequired indicates a missing command handler.
	ErrHandlerRequired = errors.New("command handler is required")
	// ErrProjectorRequired indicates a missing projector.
	ErrProjectorRequired = errors.New("projector is required")
	// ErrVerifierRequired indicates a missing stream verifier.
	ErrVerifierRequired = errors.New("stream verifier is required")
)

// CommandHandler executes validated commands against the journal.
type CommandHandler interface {
	Execute(ctx context.Context, cmd command.Command) (engine.Result, error)
}

// Projector rebuilds order read state and manages its cached views.
type Projector interface {
	Project(ctx context.Context, orderID string) (order.State, error)
	Invalidate(ctx context.Context, orderID string)
}

// StreamVerifier audits one order's journal for integrity violations.
type StreamVerifier interface {
	VerifyStream(ctx context.Context, orderID string) error
}

// Service is the application facade over the order core.
type Service struct {
	Handler   CommandHandler
	Projector Projector
	// Publisher receives committed events. Optional; nil disables
	// publishing.
	Publisher messaging.Publisher
	// Verifier audits journals on demand. Optional.
	Verifier StreamVerifier
	// Log receives publish failures. Defaults to the standard logger.
	Log log.FieldLogger
}

// SubmitCommand runs a command through the engine and returns the committed
// events. Domain rejections come back as coded errors; nothing is appended
// for a rejected command. Committed events are published after commit on a
// best effort basis.
func (s Service) SubmitCommand(ctx context.Context, cmd command.Command) ([]event.Event, error) {
	ctx, span := tracer.Start(ctx, "ordercore.submit_command", trace.WithAttributes(
		attribute.String("order.id", cmd.OrderID),
		attribute.String("command.type", string(cmd.Type)),
	))
	defer span.End()

	if s.Handler == nil {
		return nil, ErrHandlerRequired
	}
	if cmd.ActorID == "" {
		cmd.ActorID = requestctx.ActorIDFromContext(ctx)
	}
	if cmd.CorrelationID == "" {
		cmd.CorrelationID = requestctx.CorrelationIDFromContext(ctx)
	}
	result, err := s.Handler.Execute(ctx, cmd)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(result.Decision.Rejections) > 0 {
		err := rejectionError(result.Decision.Rejections)
		span.RecordError(err)
		return nil, err
	}

	if s.Projector != nil {
		s.Projector.Invalidate(ctx, cmd.OrderID)
	}
	s.publish(ctx, result.Decision.Events)
	span.SetAttributes(attribute.Int("events.committed", len(result.Decision.Events)))
	return result.Decision.Events, nil
}

// GetOrderView returns the current projected state of one order.
func (s Service) GetOrderView(ctx context.Context, orderID string) (order.State, error) {
	ctx, span := tracer.Start(ctx, "ordercore.get_order_view", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer span.End()

	if s.Projector == nil {
		return order.State{}, ErrProjectorRequired
	}
	state, err := s.Projector.Project(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return order.State{}, err
	}
	return state, nil
}

// GetStatusHistory returns every status the order has passed through, in
// order of occurrence.
func (s Service) GetStatusHistory(ctx context.Context, orderID string) ([]order.StatusChange, error) {
	ctx, span := tracer.Start(ctx, "ordercore.get_status_history", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer span.End()

	if s.Projector == nil {
		return nil, ErrProjectorRequired
	}
	state, err := s.Projector.Project(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return append([]order.StatusChange(nil), state.StatusHistory...), nil
}

// VerifyOrder audits one order's journal for sequence gaps and timestamp
// skew.
func (s Service) VerifyOrder(ctx context.Context, orderID string) error {
	ctx, span := tracer.Start(ctx, "ordercore.verify_order", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer span.End()

	if s.Verifier == nil {
		return ErrVerifierRequired
	}
	if err := s.Verifier.VerifyStream(ctx, orderID); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// publish delivers committed events downstream. The journal already holds
// the truth, so failures are logged rather than surfaced.
func (s Service) publish(ctx context.Context, events []event.Event) {
	if s.Publisher == nil || len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Publish)
	defer cancel()
	envelopes := make([]messaging.Envelope, len(events))
	for i, evt := range events {
		envelopes[i] = messaging.FromEvent(evt)
	}
	if err := s.Publisher.Publish(ctx, envelopes...); err != nil {
		s.logger().WithFields(log.Fields{
			"order_id": events[0].OrderID,
			"events":   len(events),
		}).WithError(err).Warn("event publish failed after commit")
	}
}

func (s Service) logger() log.FieldLogger {
	if s.Log != nil {
		return s.Log
	}
	return log.StandardLogger()
}

// rejectionError folds domain rejections into one coded error. The first
// rejection drives the code; the rest ride along as metadata.
func rejectionError(rejections []command.Rejection) error {
	first := rejections[0]
	if len(rejections) == 1 {
		return apperrors.New(apperrors.Code(first.Code), first.Message)
	}
	var others []string
	for _, rej := range rejections[1:] {
		others = append(others, rej.Code)
	}
	return apperrors.WithMetadata(apperrors.Code(first.Code), first.Message, map[string]string{
		"additional_rejections": strings.Join(others, ","),
	})
}
