package handler

import (
	"database/sql"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filmila/filmila/internal/payment"
	"github.com/filmila/filmila/internal/repository"
)

const (
	purchaseInsert = "INSERT INTO purchases (user_id, film_id, payment_ref) VALUES (?,?,?)"
	purchaseSelect = "SELECT id,user_id,film_id,payment_ref,created_at FROM purchases WHERE user_id=? AND film_id=? LIMIT 1"
	purchaseExists = "SELECT 1 FROM purchases WHERE user_id=? AND film_id=? LIMIT 1"
)

func newCommerce(t *testing.T, store *fakeStore, proc *fakeProcessor) (*CommerceHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMock(t)
	return NewCommerceHandler(repository.NewFilmRepo(db), repository.NewPurchaseRepo(db), store, proc), mock
}

func expectFilm(mock sqlmock.Sqlmock, id uint64, priceCents uint32, objectKey string) {
	rows := sqlmock.NewRows([]string{"id", "title", "description", "price_cents", "film_type", "object_key", "thumbnail_key", "creator_id", "created_at"}).
		AddRow(id, "Dusk", "a short", priceCents, "SHORT", objectKey, "", 4, time.Now().UTC())
	mock.ExpectQuery(filmByID).WithArgs(id).WillReturnRows(rows)
}

func TestCreatePaymentFilmNotFound(t *testing.T) {
	h, mock := newCommerce(t, newFakeStore(), &fakeProcessor{})

	mock.ExpectQuery(filmByID).WithArgs(uint64(99)).WillReturnError(sql.ErrNoRows)

	c, rec := jsonContext(http.MethodPost, "/api/create-payment", `{"film_id":99}`)
	asUser(c, 2, "VIEWER")
	require.NoError(t, h.CreatePayment(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePaymentAlreadyOwned(t *testing.T) {
	proc := &fakeProcessor{}
	h, mock := newCommerce(t, newFakeStore(), proc)

	expectFilm(mock, 7, 999, "films/abc.mp4")
	mock.ExpectQuery(purchaseExists).WithArgs(uint64(2), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	c, rec := jsonContext(http.MethodPost, "/api/create-payment", `{"film_id":7}`)
	asUser(c, 2, "VIEWER")
	require.NoError(t, h.CreatePayment(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Zero(t, proc.createCalls, "no intent may be opened for an owned film")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePaymentProcessorDownWritesNothing(t *testing.T) {
	proc := &fakeProcessor{createErr: errors.New("stripe unreachable")}
	h, mock := newCommerce(t, newFakeStore(), proc)

	expectFilm(mock, 7, 999, "films/abc.mp4")
	mock.ExpectQuery(purchaseExists).WithArgs(uint64(2), uint64(7)).WillReturnError(sql.ErrNoRows)

	c, rec := jsonContext(http.MethodPost, "/api/create-payment", `{"film_id":7}`)
	asUser(c, 2, "VIEWER")
	require.NoError(t, h.CreatePayment(c))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	// Only the two reads above may have reached the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePaymentSuccess(t *testing.T) {
	proc := &fakeProcessor{intent: payment.Intent{Reference: "pi_123", ClientSecret: "pi_123_secret"}}
	h, mock := newCommerce(t, newFakeStore(), proc)

	expectFilm(mock, 7, 999, "films/abc.mp4")
	mock.ExpectQuery(purchaseExists).WithArgs(uint64(2), uint64(7)).WillReturnError(sql.ErrNoRows)

	c, rec := jsonContext(http.MethodPost, "/api/create-payment", `{"film_id":7}`)
	asUser(c, 2, "VIEWER")
	require.NoError(t, h.CreatePayment(c))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"client_secret":"pi_123_secret"`)
	assert.Contains(t, rec.Body.String(), `"payment_ref":"pi_123"`)
	assert.Equal(t, 1, proc.createCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPurchasePaymentNotCompleted(t *testing.T) {
	proc := &fakeProcessor{status: payment.IntentStatus{AmountCents: 999, FilmID: 7, UserID: 2}}
	h, mock := newCommerce(t, newFakeStore(), proc)

	expectFilm(mock, 7, 999, "films/abc.mp4")

	c, rec := jsonContext(http.MethodPost, "/api/confirm-purchase", `{"film_id":7,"payment_ref":"pi_123"}`)
	asUser(c, 2, "VIEWER")
	require.NoError(t, h.ConfirmPurchase(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"pi_123"}, proc.verifiedRefs)
	// An unpaid reference must not reach the insert path.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPurchaseSuccess(t *testing.T) {
	proc := &fakeProcessor{status: payment.IntentStatus{Succeeded: true, AmountCents: 999, FilmID: 7, UserID: 2}}
	h, mock := newCommerce(t, newFakeStore(), proc)

	expectFilm(mock, 7, 999, "films/abc.mp4")
	mock.ExpectExec(purchaseInsert).
		WithArgs(uint64(2), uint64(7), "pi_123").
		WillReturnResult(sqlmock.NewResult(11, 1))

	c, rec := jsonContext(http.MethodPost, "/api/confirm-purchase", `{"film_id":7,"payment_ref":"pi_123"}`)
	asUser(c, 2, "VIEWER")
	require.NoError(t, h.ConfirmPurchase(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"purchase_id":11`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPurchaseIdempotentReplay(t *testing.T) {
	proc := &fakeProcessor{status: payment.IntentStatus{Succeeded: true, AmountCents: 999, FilmID: 7, UserID: 2}}
	h, mock := newCommerce(t, newFakeStore(), proc)

	expectFilm(mock, 7, 999, "films/abc.mp4")
	mock.ExpectExec(purchaseInsert).
		WithArgs(uint64(2), uint64(7), "pi_123").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '2-7' for key 'uq_purchases_user_film'"))
	rows := sqlmock.NewRows([]string{"id", "user_id", "film_id", "payment_ref", "created_at"}).
		AddRow(11, 2, 7, "pi_123", time.Now().UTC())
	mock.ExpectQuery(purchaseSelect).WithArgs(uint64(2), uint64(7)).WillReturnRows(rows)

	c, rec := jsonContext(http.MethodPost, "/api/confirm-purchase", `{"film_id":7,"payment_ref":"pi_123"}`)
	asUser(c, 2, "VIEWER")
	require.NoError(t, h.ConfirmPurchase(c))

	assert.Equal(t, http.StatusOK, rec.Code, "a retried confirmation returns the existing purchase")
	assert.Contains(t, rec.Body.String(), `"purchase_id":11`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPurchaseRejectsIntentForAnotherFilm(t *testing.T) {
	// A succeeded intent opened for a cheap film must not unlock a
	// different film; nothing may reach the purchases table.
	proc := &fakeProcessor{status: payment.IntentStatus{Succeeded: true, AmountCents: 199, FilmID: 5, UserID: 2}}
	h, mock := newCommerce(t, newFakeStore(), proc)

	expectFilm(mock, 8, 9900, "films/premiere.mp4")

	c, rec := jsonContext(http.MethodPost, "/api/confirm-purchase", `{"film_id":8,"payment_ref":"pi_cheap"}`)
	asUser(c, 2, "VIEWER")
	require.NoError(t, h.ConfirmPurchase(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, []string{"pi_cheap"}, proc.verifiedRefs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPurchaseRejectsIntentForAnotherUser(t *testing.T) {
	proc := &fakeProcessor{status: payment.IntentStatus{Succeeded: true, AmountCents: 999, FilmID: 7, UserID: 9}}
	h, mock := newCommerce(t, newFakeStore(), proc)

	expectFilm(mock, 7, 999, "films/abc.mp4")

	c, rec := jsonContext(http.MethodPost, "/api/confirm-purchase", `{"film_id":7,"payment_ref":"pi_stolen"}`)
	asUser(c, 2, "VIEWER")
	require.NoError(t, h.ConfirmPurchase(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPurchaseRejectsWrongAmount(t *testing.T) {
	// Matching film and user but an amount below the film's price, e.g.
	// an intent opened before a price change.
	proc := &fakeProcessor{status: payment.IntentStatus{Succeeded: true, AmountCents: 100, FilmID: 7, UserID: 2}}
	h, mock := newCommerce(t, newFakeStore(), proc)

	expectFilm(mock, 7, 999, "films/abc.mp4")

	c, rec := jsonContext(http.MethodPost, "/api/confirm-purchase", `{"film_id":7,"payment_ref":"pi_under"}`)
	asUser(c, 2, "VIEWER")
	require.NoError(t, h.ConfirmPurchase(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmPurchaseDifferentRefConflicts(t *testing.T) {
	proc := &fakeProcessor{status: payment.IntentStatus{Succeeded: true, AmountCents: 999, FilmID: 7, UserID: 2}}
	h, mock := newCommerce(t, newFakeStore(), proc)

	expectFilm(mock, 7, 999, "films/abc.mp4")
	mock.ExpectExec(purchaseInsert).
		WithArgs(uint64(2), uint64(7), "pi_other").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '2-7' for key 'uq_purchases_user_film'"))
	rows := sqlmock.NewRows([]string{"id", "user_id", "film_id", "payment_ref", "created_at"}).
		AddRow(11, 2, 7, "pi_123", time.Now().UTC())
	mock.ExpectQuery(purchaseSelect).WithArgs(uint64(2), uint64(7)).WillReturnRows(rows)

	c, rec := jsonContext(http.MethodPost, "/api/confirm-purchase", `{"film_id":7,"payment_ref":"pi_other"}`)
	asUser(c, 2, "VIEWER")
	require.NoError(t, h.ConfirmPurchase(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWatchRequiresPurchase(t *testing.T) {
	store := newFakeStore()
	store.objects["films/abc.mp4"] = []byte("media bytes")
	h, mock := newCommerce(t, store, &fakeProcessor{})

	expectFilm(mock, 7, 999, "films/abc.mp4")
	mock.ExpectQuery(purchaseExists).WithArgs(uint64(2), uint64(7)).WillReturnError(sql.ErrNoRows)

	c, rec := jsonContext(http.MethodGet, "/api/films/7/watch", "")
	c.SetParamNames("id")
	c.SetParamValues("7")
	asUser(c, 2, "VIEWER")
	require.NoError(t, h.Watch(c))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotContains(t, rec.Body.String(), "media bytes")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWatchStreamsOwnedFilm(t *testing.T) {
	store := newFakeStore()
	store.objects["films/abc.mp4"] = []byte("media bytes")
	h, mock := newCommerce(t, store, &fakeProcessor{})

	expectFilm(mock, 7, 999, "films/abc.mp4")
	mock.ExpectQuery(purchaseExists).WithArgs(uint64(2), uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	c, rec := jsonContext(http.MethodGet, "/api/films/7/watch", "")
	c.SetParamNames("id")
	c.SetParamValues("7")
	asUser(c, 2, "VIEWER")
	require.NoError(t, h.Watch(c))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "media bytes", string(body))
	assert.NoError(t, mock.ExpectationsWereMet())
}
