package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/filmila/filmila/internal/model"
)

// PurchaseRepo persists entitlements.  Rows are insert-only: a purchase is
// never updated or deleted, and the two UNIQUE keys (user_id+film_id,
// payment_ref) make concurrent or retried confirmations collapse into a
// single row without any read-then-write race.
type PurchaseRepo struct{ DB *sql.DB }

func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{DB: db} }

// Create records an entitlement for (userID, filmID) under paymentRef.
// The returned bool reports whether a new row was written.
//
// Duplicate-key outcomes:
//   - the pair already exists with the same paymentRef: the existing row is
//     returned with created=false (idempotent retry of a confirmation);
//   - the pair already exists under a different paymentRef: ErrAlreadyPurchased;
//   - paymentRef was already consumed by a different pair: ErrConflict.
func (r *PurchaseRepo) Create(ctx context.Context, userID, filmID uint64, paymentRef string) (model.Purchase, bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO purchases (user_id, film_id, payment_ref) VALUES (?,?,?)",
		userID, filmID, paymentRef)
	if err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Purchase{}, false, err
		}
		existing, lookupErr := r.GetByUserFilm(ctx, userID, filmID)
		if lookupErr == nil {
			if existing.PaymentRef == paymentRef {
				return existing, false, nil
			}
			return model.Purchase{}, false, ErrAlreadyPurchased
		}
		if lookupErr != sql.ErrNoRows {
			return model.Purchase{}, false, lookupErr
		}
		// The pair is free, so the collision was on payment_ref: the
		// reference was already spent on another purchase.
		return model.Purchase{}, false, ErrConflict
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Purchase{}, false, err
	}
	return model.Purchase{
		ID:         uint64(id),
		UserID:     userID,
		FilmID:     filmID,
		PaymentRef: paymentRef,
		CreatedAt:  time.Now().UTC(),
	}, true, nil
}

// Exists reports whether (userID, filmID) is entitled.  This is the whole
// playback gate: one indexed point lookup per watch request.
func (r *PurchaseRepo) Exists(ctx context.Context, userID, filmID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM purchases WHERE user_id=? AND film_id=? LIMIT 1",
		userID, filmID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetByUserFilm returns the purchase row for a pair, or sql.ErrNoRows.
func (r *PurchaseRepo) GetByUserFilm(ctx context.Context, userID, filmID uint64) (model.Purchase, error) {
	var p model.Purchase
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,film_id,payment_ref,created_at FROM purchases WHERE user_id=? AND film_id=? LIMIT 1",
		userID, filmID).Scan(&p.ID, &p.UserID, &p.FilmID, &p.PaymentRef, &p.CreatedAt)
	return p, err
}

// ListByUser returns the user's purchases, newest first.
func (r *PurchaseRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Purchase, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,user_id,film_id,payment_ref,created_at FROM purchases WHERE user_id=? ORDER BY created_at DESC, id DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Purchase, 0, 8)
	for rows.Next() {
		var p model.Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.FilmID, &p.PaymentRef, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
