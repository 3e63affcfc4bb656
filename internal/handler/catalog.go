package handler

import (
    "context"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/filmila/filmila/internal/model"
    "github.com/filmila/filmila/internal/repository"
    "github.com/filmila/filmila/internal/storage"
)

// CatalogHandler serves the public film catalog and the filmmaker upload
// surface.  Media bytes go through the Store; only metadata lives in the
// database.
type CatalogHandler struct {
    Films *repository.FilmRepo
    Store storage.Store
}

func NewCatalogHandler(films *repository.FilmRepo, store storage.Store) *CatalogHandler {
    if films == nil || store == nil {
        panic("nil dependency passed to NewCatalogHandler")
    }
    return &CatalogHandler{Films: films, Store: store}
}

// filmSummary is the public projection of a film.  Object keys stay out of
// it: the media key would bypass the purchase gate and the thumbnail is
// reachable through its own endpoint.
type filmSummary struct {
    ID           uint64    `json:"id"`
    Title        string    `json:"title"`
    Description  string    `json:"description"`
    Price        float64   `json:"price"`
    FilmType     string    `json:"film_type"`
    CreatorID    uint64    `json:"creator_id"`
    ThumbnailURL string    `json:"thumbnail_url,omitempty"`
    CreatedAt    time.Time `json:"created_at"`
}

func summarize(f model.Film) filmSummary {
    s := filmSummary{
        ID:          f.ID,
        Title:       f.Title,
        Description: f.Description,
        Price:       float64(f.PriceCents) / 100,
        FilmType:    f.FilmType,
        CreatorID:   f.CreatorID,
        CreatedAt:   f.CreatedAt,
    }
    if f.ThumbnailKey != "" {
        s.ThumbnailURL = fmt.Sprintf("/api/films/%d/thumbnail", f.ID)
    }
    return s
}

// ListFilms handles GET /api/films.  Public; sits behind the Redis
// response cache.
func (h *CatalogHandler) ListFilms(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    films, err := h.Films.ListAll(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load films"})
    }
    out := make([]filmSummary, 0, len(films))
    for _, f := range films {
        out = append(out, summarize(f))
    }
    return c.JSON(http.StatusOK, out)
}

// GetFilm handles GET /api/films/:id.
func (h *CatalogHandler) GetFilm(c echo.Context) error {
    filmID, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid film id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    f, err := h.Films.GetByID(ctx, filmID)
    if err != nil {
        if err == repository.ErrFilmNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load film"})
    }
    return c.JSON(http.StatusOK, summarize(f))
}

// MyFilms handles GET /api/my-films: the authenticated filmmaker's uploads.
func (h *CatalogHandler) MyFilms(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    films, err := h.Films.ListByCreator(ctx, userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load films"})
    }
    out := make([]filmSummary, 0, len(films))
    for _, f := range films {
        out = append(out, summarize(f))
    }
    return c.JSON(http.StatusOK, out)
}

// Thumbnail handles GET /api/films/:id/thumbnail.  Public: thumbnails are
// marketing material, unlike the media asset itself.
func (h *CatalogHandler) Thumbnail(c echo.Context) error {
    filmID, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid film id"})
    }
    ctx := c.Request().Context()

    f, err := h.Films.GetByID(ctx, filmID)
    if err != nil {
        if err == repository.ErrFilmNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load film"})
    }
    if f.ThumbnailKey == "" {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no thumbnail"})
    }
    rc, err := h.Store.Get(ctx, f.ThumbnailKey)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to open thumbnail"})
    }
    defer rc.Close()
    return c.Stream(http.StatusOK, storage.ContentTypeFor(f.ThumbnailKey), rc)
}

// UploadFilm handles POST /api/upload.  Multipart form: title and price
// required, description/film_type optional, file part "film" required,
// file part "thumbnail" optional.  The media object is written to the
// store first; if the metadata insert then fails the object is removed so
// no orphan survives.
func (h *CatalogHandler) UploadFilm(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    title := strings.TrimSpace(c.FormValue("title"))
    if title == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
    }
    priceCents, err := parsePriceCents(c.FormValue("price"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be a positive amount"})
    }

    fileHdr, err := c.FormFile("film")
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "film file is required"})
    }

    ctx := c.Request().Context()

    src, err := fileHdr.Open()
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "failed to read film file"})
    }
    defer src.Close()

    objectKey := storage.NewObjectKey("films", fileHdr.Filename)
    if err := h.Store.Put(ctx, objectKey, src, fileHdr.Size, storage.ContentTypeFor(fileHdr.Filename)); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to store film"})
    }

    thumbKey := ""
    if thumbHdr, err := c.FormFile("thumbnail"); err == nil {
        tsrc, err := thumbHdr.Open()
        if err == nil {
            thumbKey = storage.NewObjectKey("thumbs", thumbHdr.Filename)
            if err := h.Store.Put(ctx, thumbKey, tsrc, thumbHdr.Size, storage.ContentTypeFor(thumbHdr.Filename)); err != nil {
                thumbKey = "" // film stays playable without a thumbnail
            }
            tsrc.Close()
        }
    }

    film := &model.Film{
        Title:        title,
        Description:  strings.TrimSpace(c.FormValue("description")),
        PriceCents:   priceCents,
        FilmType:     strings.TrimSpace(c.FormValue("film_type")),
        ObjectKey:    objectKey,
        ThumbnailKey: thumbKey,
        CreatorID:    userID,
    }

    dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    id, err := h.Films.Create(dbCtx, film)
    if err != nil {
        // Roll the media back so the bucket holds no unreferenced objects.
        _ = h.Store.Remove(ctx, objectKey)
        if thumbKey != "" {
            _ = h.Store.Remove(ctx, thumbKey)
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create film"})
    }

    return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// parsePriceCents converts a decimal form value like "9.99" into cents.
func parsePriceCents(s string) (uint32, error) {
    v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
    if err != nil {
        return 0, err
    }
    cents := math.Round(v * 100)
    if cents <= 0 || cents > math.MaxUint32 {
        return 0, fmt.Errorf("price out of range: %s", s)
    }
    return uint32(cents), nil
}
