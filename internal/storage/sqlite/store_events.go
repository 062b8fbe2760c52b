package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/louisbranch/ordercore/internal/domain/event"
	apperrors "github.com/louisbranch/ordercore/internal/platform/errors"
	"github.com/louisbranch/ordercore/internal/platform/timeouts"
	"github.com/louisbranch/ordercore/internal/storage"
)

const eventColumns = "id, order_id, seq, timestamp, event_type, actor_type, actor_id, correlation_id, causation_id, payload_json"

// AppendEvents atomically appends a batch of events to one order's stream.
//
// The whole batch commits or nothing does. expectedNextSeq is compared
// against the stream head inside the transaction; the (order_id, seq)
// primary key is the backstop when two writers race past that check.
func (s *Store) AppendEvents(ctx context.Context, orderID string, expectedNextSeq uint64, events []event.Event) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if s.eventRegistry == nil {
		return nil, fmt.Errorf("event registry is required")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperrors.New(apperrors.CodeOrderIDRequired, "order id is required")
	}
	if expectedNextSeq == 0 {
		return nil, apperrors.New(apperrors.CodeEventSequenceGap, "expected next sequence must start at 1")
	}
	if len(events) == 0 {
		return nil, nil
	}

	validated := make([]event.Event, len(events))
	for i, evt := range events {
		if evt.OrderID == "" {
			evt.OrderID = orderID
		}
		if evt.OrderID != orderID {
			return nil, apperrors.WithMetadata(apperrors.CodeOrderIDRequired,
				"batch events must target one order", map[string]string{
					"order_id": orderID,
					"event":    evt.OrderID,
				})
		}
		v, err := s.eventRegistry.ValidateForAppend(evt)
		if err != nil {
			return nil, err
		}
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		validated[i] = v
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.StoreWrite)
	defer cancel()

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapStoreError("begin tx", err)
	}
	defer tx.Rollback()

	var latestSeq uint64
	var lastMillis int64
	row := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0), COALESCE(MAX(timestamp), 0) FROM events WHERE order_id = ?", orderID)
	if err := row.Scan(&latestSeq, &lastMillis); err != nil {
		return nil, mapStoreError("read stream head", err)
	}
	if latestSeq+1 != expectedNextSeq {
		return nil, apperrors.WithMetadata(apperrors.CodeConcurrencyConflict,
			"event stream advanced past the expected sequence", map[string]string{
				"order_id":     orderID,
				"expected_seq": fmt.Sprintf("%d", expectedNextSeq),
				"next_seq":     fmt.Sprintf("%d", latestSeq+1),
			})
	}

	// Per-stream timestamps never decrease, even when callers' clocks skew.
	floor := lastMillis
	for i := range validated {
		validated[i].Seq = expectedNextSeq + uint64(i)
		if millis := toMillis(validated[i].Timestamp); millis < floor {
			validated[i].Timestamp = fromMillis(floor)
		} else {
			floor = millis
		}
	}

	for _, evt := range validated {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			evt.ID, evt.OrderID, int64(evt.Seq), toMillis(evt.Timestamp), string(evt.Type),
			string(evt.ActorType), evt.ActorID, evt.CorrelationID, evt.CausationID, evt.PayloadJSON,
		); err != nil {
			return nil, mapStoreError("append event", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapStoreError("commit", err)
	}

	return validated, nil
}

// ReadStream returns one order's events ordered by sequence.
func (s *Store) ReadStream(ctx context.Context, orderID string, opts storage.ReadStreamOptions) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperrors.New(apperrors.CodeOrderIDRequired, "order id is required")
	}

	query := "SELECT " + eventColumns + " FROM events WHERE order_id = ?"
	args := []any{orderID}
	if opts.AfterSeq > 0 {
		query += " AND seq > ?"
		args = append(args, int64(opts.AfterSeq))
	}
	if opts.UntilSeq > 0 {
		query += " AND seq <= ?"
		args = append(args, int64(opts.UntilSeq))
	}
	if opts.Reverse {
		query += " ORDER BY seq DESC"
	} else {
		query += " ORDER BY seq ASC"
	}
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, int64(opts.Limit))
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.StoreRead)
	defer cancel()

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapStoreError("read stream", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ReadByType returns events of one type across orders within a time range,
// ordered by timestamp ascending. It is served by the (event_type, timestamp)
// index rather than a stream scan.
func (s *Store) ReadByType(ctx context.Context, eventType event.Type, from, to time.Time, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if !eventType.IsValid() {
		return nil, apperrors.New(apperrors.CodeEventTypeUnknown, "event type is required")
	}

	query := "SELECT " + eventColumns + " FROM events WHERE event_type = ?"
	args := []any{string(eventType)}
	if !from.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, toMillis(from))
	}
	if !to.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, toMillis(to))
	}
	query += " ORDER BY timestamp ASC, order_id ASC, seq ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, int64(limit))
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.StoreRead)
	defer cancel()

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapStoreError("read by type", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// LatestSeq returns the latest event sequence number for an order.
func (s *Store) LatestSeq(ctx context.Context, orderID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return 0, apperrors.New(apperrors.CodeOrderIDRequired, "order id is required")
	}

	var seq uint64
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) FROM events WHERE order_id = ?", orderID)
	if err := row.Scan(&seq); err != nil {
		return 0, mapStoreError("latest seq", err)
	}
	return seq, nil
}

// VerifyStream walks an order's journal asserting contiguous sequences
// starting at 1 and non-decreasing timestamps.
func (s *Store) VerifyStream(ctx context.Context, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	const pageSize = 256
	var afterSeq uint64
	var lastTimestamp time.Time

	for {
		page, err := s.ReadStream(ctx, orderID, storage.ReadStreamOptions{
			AfterSeq: afterSeq,
			Limit:    pageSize,
		})
		if err != nil {
			return err
		}
		if len(page) == 0 {
			if afterSeq == 0 {
				return storage.ErrNotFound
			}
			return nil
		}
		for _, evt := range page {
			if evt.Seq != afterSeq+1 {
				return apperrors.WithMetadata(apperrors.CodeEventSequenceGap,
					"event stream has a sequence gap", map[string]string{
						"order_id": orderID,
						"expected": fmt.Sprintf("%d", afterSeq+1),
						"got":      fmt.Sprintf("%d", evt.Seq),
					})
			}
			if evt.Timestamp.Before(lastTimestamp) {
				return apperrors.WithMetadata(apperrors.CodeEventTimestampSkewed,
					"event timestamps decrease within the stream", map[string]string{
						"order_id": orderID,
						"seq":      fmt.Sprintf("%d", evt.Seq),
					})
			}
			afterSeq = evt.Seq
			lastTimestamp = evt.Timestamp
		}
		if len(page) < pageSize {
			return nil
		}
	}
}

func scanEvents(rows *sql.Rows) ([]event.Event, error) {
	var events []event.Event
	for rows.Next() {
		var evt event.Event
		var seq, millis int64
		var eventType, actorType string
		if err := rows.Scan(&evt.ID, &evt.OrderID, &seq, &millis, &eventType,
			&actorType, &evt.ActorID, &evt.CorrelationID, &evt.CausationID, &evt.PayloadJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Seq = uint64(seq)
		evt.Timestamp = fromMillis(millis)
		evt.Type = event.Type(eventType)
		evt.ActorType = event.ActorType(actorType)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}
