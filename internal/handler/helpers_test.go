package handler

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/filmila/filmila/internal/config"
	"github.com/filmila/filmila/internal/payment"
)

// testConfig keeps bcrypt cheap and TTLs short for unit tests.
func testConfig() config.Config {
	return config.Config{
		Env:            "test",
		JWTSecret:      "handler-test-secret",
		AccessTTLMin:   60,
		RefreshTTLDays: 7,
		BcryptCost:     4,
	}
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// jsonContext builds an echo context carrying a JSON body.
func jsonContext(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// asUser marks the context as authenticated the way JWTAuth would.
func asUser(c echo.Context, id uint64, role string) {
	c.Set("user_id", float64(id)) // JWT numeric claims arrive as float64
	c.Set("role", role)
}

// fakeStore is an in-memory storage.Store.
type fakeStore struct {
	objects map[string][]byte
	putErr  error
	removed []string
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (s *fakeStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if s.putErr != nil {
		return s.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = b
	return nil
}

func (s *fakeStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := s.objects[key]
	if !ok {
		return nil, errors.New("object not found: " + key)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeStore) Remove(_ context.Context, key string) error {
	delete(s.objects, key)
	s.removed = append(s.removed, key)
	return nil
}

// fakeProcessor is a scripted payment.Processor.
type fakeProcessor struct {
	intent       payment.Intent
	createErr    error
	status       payment.IntentStatus
	verifyErr    error
	createCalls  int
	verifiedRefs []string
}

func (p *fakeProcessor) CreateIntent(_ context.Context, amountCents int64, currency string, filmID, userID uint64) (payment.Intent, error) {
	p.createCalls++
	if p.createErr != nil {
		return payment.Intent{}, p.createErr
	}
	return p.intent, nil
}

func (p *fakeProcessor) VerifyIntent(_ context.Context, ref string) (payment.IntentStatus, error) {
	p.verifiedRefs = append(p.verifiedRefs, ref)
	if p.verifyErr != nil {
		return payment.IntentStatus{}, p.verifyErr
	}
	return p.status, nil
}
