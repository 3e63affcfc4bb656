package model

import "time"

// Film mirrors a row of the `films` table.  Prices are stored in integer
// cents to avoid floating point drift; the API layer converts to and from
// decimal amounts.  ObjectKey and ThumbnailKey name objects in the media
// bucket and must never appear in public responses — playback is gated and
// thumbnails are served through a dedicated endpoint.
//
// Fields:
//  ID           – primary key identifier of the film.
//  Title        – display title, required at upload.
//  Description  – free-form synopsis (may be empty).
//  PriceCents   – positive price in cents, immutable after creation.
//  FilmType     – category tag such as "short" or "documentary".
//  ObjectKey    – media asset key in the object store.
//  ThumbnailKey – thumbnail key in the object store (may be empty).
//  CreatorID    – owning filmmaker (users.id).
//  CreatedAt    – timestamp of creation.
type Film struct {
    ID           uint64    // films.id
    Title        string    // films.title
    Description  string    // films.description
    PriceCents   uint32    // films.price_cents
    FilmType     string    // films.film_type
    ObjectKey    string    // films.object_key
    ThumbnailKey string    // films.thumbnail_key
    CreatorID    uint64    // films.creator_id
    CreatedAt    time.Time // films.created_at
}
