package model

import "time"

// Purchase mirrors a row of the `purchases` table.  A row is the durable
// entitlement: its existence is what authorizes playback.  Two UNIQUE keys
// back the invariants — (user_id, film_id) so a pair is entitled at most
// once, and payment_ref so a retried confirmation cannot mint a second row.
// Rows are written only after the payment processor reports success and are
// never updated or deleted.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – buyer (users.id).
//  FilmID     – purchased film (films.id).
//  PaymentRef – external payment processor reference (intent id).
//  CreatedAt  – timestamp of confirmation.
type Purchase struct {
    ID         uint64    // purchases.id
    UserID     uint64    // purchases.user_id
    FilmID     uint64    // purchases.film_id
    PaymentRef string    // purchases.payment_ref
    CreatedAt  time.Time // purchases.created_at
}
