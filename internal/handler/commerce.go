package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/filmila/filmila/internal/payment"
    "github.com/filmila/filmila/internal/queue"
    "github.com/filmila/filmila/internal/repository"
    queue_publisher "github.com/filmila/filmila/internal/service"
    "github.com/filmila/filmila/internal/storage"
)

// CommerceHandler implements the payment step and the purchase-gated
// playback endpoint.  The entitlement state machine per (user, film) is
// NoPurchase -> PaymentPending -> Entitled: intent creation leaves no local
// state (PaymentPending lives at the processor), and the purchases row is
// written only once the processor reports the payment succeeded.
type CommerceHandler struct {
    Films     *repository.FilmRepo
    Purchases *repository.PurchaseRepo
    Store     storage.Store
    Processor payment.Processor
}

func NewCommerceHandler(films *repository.FilmRepo, purchases *repository.PurchaseRepo, store storage.Store, proc payment.Processor) *CommerceHandler {
    if films == nil || purchases == nil || store == nil || proc == nil {
        panic("nil dependency passed to NewCommerceHandler")
    }
    return &CommerceHandler{Films: films, Purchases: purchases, Store: store, Processor: proc}
}

type createPaymentReq struct {
    FilmID uint64 `json:"film_id"`
}

type confirmPurchaseReq struct {
    FilmID     uint64 `json:"film_id"`
    PaymentRef string `json:"payment_ref"`
}

// CreatePayment handles POST /api/create-payment.  It opens a payment
// intent for the film's price and returns the processor client secret.
// No local state is written here: a failed or abandoned payment must leave
// no trace in the database.
func (h *CommerceHandler) CreatePayment(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req createPaymentReq
    if err := c.Bind(&req); err != nil || req.FilmID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "film_id required"})
    }

    dbCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    film, err := h.Films.GetByID(dbCtx, req.FilmID)
    if err != nil {
        if err == repository.ErrFilmNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load film"})
    }

    // Don't open a second payment for a film the user already owns.
    owned, err := h.Purchases.Exists(dbCtx, userID, film.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check entitlement"})
    }
    if owned {
        return c.JSON(http.StatusConflict, echo.Map{"error": "film already purchased"})
    }

    intent, err := h.Processor.CreateIntent(c.Request().Context(), int64(film.PriceCents), "usd", film.ID, userID)
    if err != nil {
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment processor unavailable"})
    }

    return c.JSON(http.StatusOK, echo.Map{
        "client_secret": intent.ClientSecret,
        "payment_ref":   intent.Reference,
    })
}

// ConfirmPurchase handles POST /api/confirm-purchase.  The payment
// reference is verified with the processor before any write: the intent
// must have succeeded AND have been opened for this film, this caller and
// this film's price, so a reference paid for one film cannot unlock
// another.  Retrying the same reference is idempotent and returns the
// existing purchase with 200.
func (h *CommerceHandler) ConfirmPurchase(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var req confirmPurchaseReq
    if err := c.Bind(&req); err != nil || req.FilmID == 0 || req.PaymentRef == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "film_id and payment_ref required"})
    }

    dbCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    film, err := h.Films.GetByID(dbCtx, req.FilmID)
    if err != nil {
        if err == repository.ErrFilmNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load film"})
    }

    intent, err := h.Processor.VerifyIntent(c.Request().Context(), req.PaymentRef)
    if err != nil {
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment processor unavailable"})
    }
    if !intent.Succeeded {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "payment not completed"})
    }
    if intent.FilmID != film.ID || intent.UserID != userID || intent.AmountCents != int64(film.PriceCents) {
        return c.JSON(http.StatusConflict, echo.Map{"error": "payment reference does not match this purchase"})
    }

    purchase, created, err := h.Purchases.Create(dbCtx, userID, film.ID, req.PaymentRef)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrAlreadyPurchased):
            return c.JSON(http.StatusConflict, echo.Map{"error": "film already purchased"})
        case errors.Is(err, repository.ErrConflict):
            return c.JSON(http.StatusConflict, echo.Map{"error": "payment reference already used"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to record purchase"})
        }
    }

    status := http.StatusOK
    if created {
        status = http.StatusCreated
        // Broker failures must not fail the purchase; publish detached
        // from the request lifecycle.
        ev := queue.PurchaseCompletedEvent{
            PurchaseID:  purchase.ID,
            UserID:      purchase.UserID,
            FilmID:      purchase.FilmID,
            FilmTitle:   film.Title,
            CreatorID:   film.CreatorID,
            PriceCents:  film.PriceCents,
            PaymentRef:  purchase.PaymentRef,
            PurchasedAt: purchase.CreatedAt.Format(time.RFC3339),
        }
        go func() {
            ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
            defer cancel()
            _ = queue_publisher.PublishPurchaseCompleted(ctx, ev)
        }()
    }

    return c.JSON(status, echo.Map{
        "purchase_id": purchase.ID,
        "film_id":     purchase.FilmID,
        "payment_ref": purchase.PaymentRef,
    })
}

// MyPurchases handles GET /api/my-purchases.
func (h *CommerceHandler) MyPurchases(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    dbCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    purchases, err := h.Purchases.ListByUser(dbCtx, userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load purchases"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": purchases})
}

// Watch handles GET /api/films/:id/watch (and the /api/watch/:id alias).
// The gate: a purchases row for (user, film) must exist before the media
// object is streamed.  The handler writes nothing.
func (h *CommerceHandler) Watch(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    filmID, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid film id"})
    }

    dbCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    film, err := h.Films.GetByID(dbCtx, filmID)
    if err != nil {
        if err == repository.ErrFilmNotFound {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "film not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load film"})
    }

    entitled, err := h.Purchases.Exists(dbCtx, userID, filmID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check entitlement"})
    }
    if !entitled {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "not purchased"})
    }

    rc, err := h.Store.Get(c.Request().Context(), film.ObjectKey)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to open media"})
    }
    defer rc.Close()
    return c.Stream(http.StatusOK, storage.ContentTypeFor(film.ObjectKey), rc)
}
