package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AcquireLease claims the single-writer lease for owner until ttl elapses.
// An expired lease is reclaimed regardless of who held it, so a crashed run
// never wedges the store. Re-acquiring by the current owner renews the lease.
func (s *SQLite) AcquireLease(ctx context.Context, owner string, ttl time.Duration) (Lease, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Lease{}, fmt.Errorf("acquire lease: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	cur, err := readLease(ctx, tx)
	switch {
	case err != nil && !errors.Is(err, ErrNotFound):
		return Lease{}, err
	case err == nil && cur.Owner != owner && cur.ExpiresAt.After(now):
		return Lease{}, fmt.Errorf("owner %s until %s: %w",
			cur.Owner, cur.ExpiresAt.Format(time.RFC3339), ErrLeaseHeld)
	}

	lease := Lease{Owner: owner, AcquiredAt: now, ExpiresAt: now.Add(ttl)}
	const q = `INSERT INTO lease (id, owner, acquired_at, expires_at) VALUES (1, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    owner = excluded.owner, acquired_at = excluded.acquired_at, expires_at = excluded.expires_at`
	if _, err := tx.ExecContext(ctx, q,
		lease.Owner, encodeTime(lease.AcquiredAt), encodeTime(lease.ExpiresAt),
	); err != nil {
		return Lease{}, fmt.Errorf("acquire lease: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Lease{}, fmt.Errorf("acquire lease: %w", err)
	}
	return lease, nil
}

// ReleaseLease releases the lease if owner still holds it. Releasing a lease
// that expired or was taken over is not an error.
func (s *SQLite) ReleaseLease(ctx context.Context, owner string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM lease WHERE id = 1 AND owner = ?`, owner); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// CurrentLease returns the active lease, or ErrNotFound when the lease is
// free or expired.
func (s *SQLite) CurrentLease(ctx context.Context) (Lease, error) {
	lease, err := readLease(ctx, s.db)
	if err != nil {
		return Lease{}, err
	}
	if !lease.ExpiresAt.After(time.Now().UTC()) {
		return Lease{}, fmt.Errorf("lease expired: %w", ErrNotFound)
	}
	return lease, nil
}

func readLease(ctx context.Context, q querier) (Lease, error) {
	var (
		lease      Lease
		acquiredAt string
		expiresAt  string
	)
	err := q.QueryRowContext(ctx, `SELECT owner, acquired_at, expires_at FROM lease WHERE id = 1`).
		Scan(&lease.Owner, &acquiredAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Lease{}, fmt.Errorf("lease: %w", ErrNotFound)
	}
	if err != nil {
		return Lease{}, fmt.Errorf("read lease: %w", err)
	}
	if lease.AcquiredAt, err = decodeTime(acquiredAt); err != nil {
		return Lease{}, fmt.Errorf("read lease acquired_at: %w", err)
	}
	if lease.ExpiresAt, err = decodeTime(expiresAt); err != nil {
		return Lease{}, fmt.Errorf("read lease expires_at: %w", err)
	}
	return lease, nil
}
