// Package queue defines message payloads exchanged over the message broker.
package queue

// PurchaseCompletedEvent is published after a purchase is confirmed and the
// entitlement row is committed.  It carries enough context for downstream
// consumers (receipts, filmmaker payout accounting, analytics) without
// querying the primary database.
type PurchaseCompletedEvent struct {
    PurchaseID  uint64 `json:"purchase_id"`
    UserID      uint64 `json:"user_id"`
    FilmID      uint64 `json:"film_id"`
    FilmTitle   string `json:"film_title"`
    CreatorID   uint64 `json:"creator_id"`
    PriceCents  uint32 `json:"price_cents"`
    PaymentRef  string `json:"payment_ref"`
    PurchasedAt string `json:"purchased_at"`
}
