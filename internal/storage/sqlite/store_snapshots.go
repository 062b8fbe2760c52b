package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/ordercore/internal/platform/errors"
	"github.com/louisbranch/ordercore/internal/platform/timeouts"
	"github.com/louisbranch/ordercore/internal/storage"
)

// PutSnapshot stores a snapshot, replacing any older one for the order.
func (s *Store) PutSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(snapshot.OrderID) == "" {
		return apperrors.New(apperrors.CodeOrderIDRequired, "order id is required")
	}
	if snapshot.EventSeq == 0 {
		return fmt.Errorf("snapshot event seq is required")
	}
	if len(snapshot.StateJSON) == 0 {
		return fmt.Errorf("snapshot state is required")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.StoreWrite)
	defer cancel()

	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO snapshots (order_id, event_seq, state_json, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (order_id) DO UPDATE SET
    event_seq = excluded.event_seq,
    state_json = excluded.state_json,
    created_at = excluded.created_at`,
		snapshot.OrderID, int64(snapshot.EventSeq), snapshot.StateJSON, toMillis(snapshot.CreatedAt),
	); err != nil {
		return mapStoreError("put snapshot", err)
	}
	return nil
}

// GetLatestSnapshot retrieves the most recent snapshot for an order.
func (s *Store) GetLatestSnapshot(ctx context.Context, orderID string) (storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Snapshot{}, fmt.Errorf("storage is not configured")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return storage.Snapshot{}, apperrors.New(apperrors.CodeOrderIDRequired, "order id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.StoreRead)
	defer cancel()

	var snap storage.Snapshot
	var seq, createdAt int64
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT order_id, event_seq, state_json, created_at FROM snapshots WHERE order_id = ?", orderID)
	if err := row.Scan(&snap.OrderID, &seq, &snap.StateJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Snapshot{}, storage.ErrNotFound
		}
		return storage.Snapshot{}, mapStoreError("get latest snapshot", err)
	}
	snap.EventSeq = uint64(seq)
	snap.CreatedAt = fromMillis(createdAt)
	return snap, nil
}
