package repository

import (
	"context"
	"database/sql"

	"github.com/filmila/filmila/internal/model"
)

// FilmRepo provides persistence for the film catalog.  Films are written
// once at upload time; price and ownership are immutable afterwards, so
// there is no update path here.
type FilmRepo struct{ DB *sql.DB }

func NewFilmRepo(db *sql.DB) *FilmRepo { return &FilmRepo{DB: db} }

const filmColumns = "id,title,description,price_cents,film_type,object_key,thumbnail_key,creator_id,created_at"

// Create inserts a film row and returns its ID.  The caller is responsible
// for having persisted the media object first; object_key must already name
// a durable asset.
func (r *FilmRepo) Create(ctx context.Context, f *model.Film) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO films (title, description, price_cents, film_type, object_key, thumbnail_key, creator_id) VALUES (?,?,?,?,?,?,?)",
		f.Title, f.Description, f.PriceCents, f.FilmType, f.ObjectKey, f.ThumbnailKey, f.CreatorID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	f.ID = uint64(id)
	return f.ID, nil
}

// GetByID fetches a single film.  Absence maps to ErrFilmNotFound.
func (r *FilmRepo) GetByID(ctx context.Context, id uint64) (model.Film, error) {
	var f model.Film
	var desc sql.NullString
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+filmColumns+" FROM films WHERE id=? LIMIT 1",
		id).Scan(&f.ID, &f.Title, &desc, &f.PriceCents, &f.FilmType, &f.ObjectKey, &f.ThumbnailKey, &f.CreatorID, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return f, ErrFilmNotFound
	}
	if err != nil {
		return f, err
	}
	f.Description = desc.String
	return f, nil
}

// ListAll returns every film ordered newest first.  The handler strips the
// object keys before anything leaves the process.
func (r *FilmRepo) ListAll(ctx context.Context) ([]model.Film, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+filmColumns+" FROM films ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	films := make([]model.Film, 0, 16)
	for rows.Next() {
		var f model.Film
		var desc sql.NullString
		if err := rows.Scan(&f.ID, &f.Title, &desc, &f.PriceCents, &f.FilmType, &f.ObjectKey, &f.ThumbnailKey, &f.CreatorID, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Description = desc.String
		films = append(films, f)
	}
	return films, rows.Err()
}

// ListByCreator returns the films owned by one filmmaker, newest first.
func (r *FilmRepo) ListByCreator(ctx context.Context, creatorID uint64) ([]model.Film, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+filmColumns+" FROM films WHERE creator_id=? ORDER BY created_at DESC, id DESC",
		creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	films := make([]model.Film, 0, 8)
	for rows.Next() {
		var f model.Film
		var desc sql.NullString
		if err := rows.Scan(&f.ID, &f.Title, &desc, &f.PriceCents, &f.FilmType, &f.ObjectKey, &f.ThumbnailKey, &f.CreatorID, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Description = desc.String
		films = append(films, f)
	}
	return films, rows.Err()
}
