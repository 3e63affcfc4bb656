package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filmila/filmila/internal/repository"
	"github.com/filmila/filmila/internal/utils"
)

const (
	userInsert    = "INSERT INTO users (email, password_hash, display_name, is_filmmaker) VALUES (?,?,?,?)"
	refreshInsert = "INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)"
	userByEmail   = "SELECT id,email,password_hash,display_name,is_filmmaker,created_at,updated_at FROM users WHERE email=? LIMIT 1"
	userByID      = "SELECT id,email,password_hash,display_name,is_filmmaker,created_at,updated_at FROM users WHERE id=? LIMIT 1"
)

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMock(t)
	return NewAuthHandler(testConfig(), repository.NewUserRepo(db), repository.NewTokenRepo(db)), mock
}

func TestRegisterSuccess(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec(userInsert).
		WithArgs("f@x.com", sqlmock.AnyArg(), "Fern", true).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(refreshInsert).
		WithArgs(uint64(1), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := jsonContext(http.MethodPost, "/api/register",
		`{"email":"f@x.com","password":"pw123456","display_name":"Fern","is_filmmaker":true}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		User struct {
			ID          uint64 `json:"id"`
			Email       string `json:"email"`
			IsFilmmaker bool   `json:"is_filmmaker"`
		} `json:"user"`
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
		Refresh struct {
			Token string `json:"token"`
		} `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.User.ID)
	assert.True(t, resp.User.IsFilmmaker)
	assert.NotEmpty(t, resp.Access.Token)
	assert.NotEmpty(t, resp.Refresh.Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectExec(userInsert).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'f@x.com' for key 'uq_users_email'"))

	c, rec := jsonContext(http.MethodPost, "/api/register",
		`{"email":"f@x.com","password":"pw123456"}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterInvalidInput(t *testing.T) {
	h, _ := newAuthHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"missing password", `{"email":"f@x.com"}`},
		{"missing email", `{"password":"pw123456"}`},
		{"email without at", `{"email":"fx.com","password":"pw123456"}`},
		{"email without dot", `{"email":"f@xcom","password":"pw123456"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := jsonContext(http.MethodPost, "/api/register", tc.body)
			require.NoError(t, h.Register(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestLoginWrongPasswordAndUnknownEmailIndistinguishable(t *testing.T) {
	h, mock := newAuthHandler(t)

	hash, err := utils.HashPassword("pw123456", 4)
	require.NoError(t, err)
	now := time.Now().UTC()

	// Known email, wrong password.
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "display_name", "is_filmmaker", "created_at", "updated_at"}).
		AddRow(2, "b@x.com", hash, "Blair", false, now, now)
	mock.ExpectQuery(userByEmail).WithArgs("b@x.com").WillReturnRows(rows)

	c1, rec1 := jsonContext(http.MethodPost, "/api/login", `{"email":"b@x.com","password":"wrong"}`)
	require.NoError(t, h.Login(c1))

	// Unknown email.
	mock.ExpectQuery(userByEmail).WithArgs("nobody@x.com").WillReturnError(sql.ErrNoRows)

	c2, rec2 := jsonContext(http.MethodPost, "/api/login", `{"email":"nobody@x.com","password":"pw123456"}`)
	require.NoError(t, h.Login(c2))

	assert.Equal(t, http.StatusUnauthorized, rec1.Code)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
	assert.JSONEq(t, rec1.Body.String(), rec2.Body.String(),
		"failure responses must not reveal whether the email exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginSuccessTokenResolvesSameUser(t *testing.T) {
	h, mock := newAuthHandler(t)

	hash, err := utils.HashPassword("pw123456", 4)
	require.NoError(t, err)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "display_name", "is_filmmaker", "created_at", "updated_at"}).
		AddRow(2, "b@x.com", hash, "Blair", false, now, now)
	mock.ExpectQuery(userByEmail).WithArgs("b@x.com").WillReturnRows(rows)
	mock.ExpectExec(refreshInsert).
		WithArgs(uint64(2), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := jsonContext(http.MethodPost, "/api/login", `{"email":"b@x.com","password":"pw123456"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// Resolve the credential back through Me, as a client would.
	meRows := sqlmock.NewRows([]string{"id", "email", "password_hash", "display_name", "is_filmmaker", "created_at", "updated_at"}).
		AddRow(2, "b@x.com", hash, "Blair", false, now, now)
	mock.ExpectQuery(userByID).WithArgs(uint64(2)).WillReturnRows(meRows)

	cMe, recMe := jsonContext(http.MethodGet, "/api/user", "")
	asUser(cMe, 2, "VIEWER")
	require.NoError(t, h.Me(cMe))
	assert.Equal(t, http.StatusOK, recMe.Code)
	assert.Contains(t, recMe.Body.String(), `"email":"b@x.com"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMeUserRowGone(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(userByID).WithArgs(uint64(9)).WillReturnError(sql.ErrNoRows)

	c, rec := jsonContext(http.MethodGet, "/api/user", "")
	asUser(c, 9, "VIEWER")
	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
