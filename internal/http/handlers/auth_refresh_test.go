package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cartline/cartline/internal/auth"
	"github.com/cartline/cartline/internal/config"
	"github.com/cartline/cartline/internal/domain/user"
	"github.com/cartline/cartline/internal/http/handlers"
	"github.com/cartline/cartline/internal/repo/postgres"
	"github.com/cartline/cartline/internal/security"
)

type fakeRefreshStore struct {
	rotateErr error

	inserted []postgres.RefreshTokenRow
	rotated  []postgres.RefreshTokenRow
	revoked  []string

	lastOldID string
	lastHash  string
}

func (f *fakeRefreshStore) Insert(ctx context.Context, row postgres.RefreshTokenRow) error {
	f.inserted = append(f.inserted, row)
	return nil
}

func (f *fakeRefreshStore) Rotate(ctx context.Context, oldID, presentedHash string, next postgres.RefreshTokenRow) error {
	f.lastOldID = oldID
	f.lastHash = presentedHash

	if f.rotateErr != nil {
		return f.rotateErr
	}

	f.rotated = append(f.rotated, next)
	return nil
}

func (f *fakeRefreshStore) RevokeByID(ctx context.Context, id string) error {
	f.revoked = append(f.revoked, id)
	return nil
}

func newRefreshHandler(store handlers.RefreshTokenStore) (*handlers.AuthHandler, *auth.Manager) {
	jwtManager := auth.NewManager("test-secret", 15*time.Minute, time.Hour)

	h := handlers.NewAuthHandler(&fakeUsersRepo{}, &fakeUsersRepo{}, jwtManager, store, config.Config{Env: "dev"})

	return h, jwtManager
}

func postWithCookie(r http.Handler, path, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)

	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "refresh_token", Value: cookie})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestRefreshHandlerRejections(t *testing.T) {
	jwtManager := auth.NewManager("test-secret", 15*time.Minute, time.Hour)

	goodToken, _, _, err := jwtManager.GenerateRefreshToken("user-1", "a@x.com", "Customer")
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	accessToken, err := jwtManager.GenerateAccessToken("user-1", "a@x.com", "Customer")
	if err != nil {
		t.Fatalf("generate access token: %v", err)
	}

	tests := []struct {
		name       string
		cookie     string
		rotateErr  error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing_cookie",
			cookie:     "",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "no_refresh",
		},
		{
			name:       "garbage_token",
			cookie:     "not-a-jwt",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_refresh",
		},
		{
			name:       "access_token_in_refresh_cookie",
			cookie:     accessToken,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_refresh",
		},
		{
			name:       "expired_in_store",
			cookie:     goodToken,
			rotateErr:  postgres.ErrRefreshTokenExpired,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "expired_refresh",
		},
		{
			name:       "hash_mismatch",
			cookie:     goodToken,
			rotateErr:  postgres.ErrRefreshTokenNotFound,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_refresh",
		},
		{
			name:       "reuse_detected",
			cookie:     goodToken,
			rotateErr:  postgres.ErrRefreshTokenReused,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_refresh",
		},
		{
			name:       "store_failure",
			cookie:     goodToken,
			rotateErr:  errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeRefreshStore{rotateErr: tt.rotateErr}

			h, _ := newRefreshHandler(store)
			r := setupRouter(http.MethodPost, "/auth/refresh", h.Refresh)

			w := postWithCookie(r, "/auth/refresh", tt.cookie)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if !strings.Contains(w.Body.String(), tt.wantCode) {
				t.Errorf("body %s does not carry code %q", w.Body.String(), tt.wantCode)
			}
		})
	}
}

func TestRefreshHandlerRotates(t *testing.T) {
	store := &fakeRefreshStore{}

	h, jwtManager := newRefreshHandler(store)
	r := setupRouter(http.MethodPost, "/auth/refresh", h.Refresh)

	raw, jti, _, err := jwtManager.GenerateRefreshToken("user-1", "a@x.com", "Customer")
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	w := postWithCookie(r, "/auth/refresh", raw)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	// the store saw the presented token's id and hash
	if store.lastOldID != jti {
		t.Errorf("rotated old id = %q, want %q", store.lastOldID, jti)
	}

	if store.lastHash != jwtManager.HashRefreshToken(raw) {
		t.Error("presented hash does not match the cookie token")
	}

	if len(store.rotated) != 1 {
		t.Fatalf("rotated %d rows, want 1", len(store.rotated))
	}

	next := store.rotated[0]

	if next.UserID != "user-1" {
		t.Errorf("next row user = %q, want user-1", next.UserID)
	}

	if next.ID == jti {
		t.Error("rotation reused the old jti")
	}

	if next.TokenHash == jwtManager.HashRefreshToken(raw) {
		t.Error("rotation reissued the same refresh token")
	}

	// the response carries a fresh access token for the same user
	var resp struct {
		Token string `json:"token"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	claims, err := jwtManager.VerifyAccessToken(resp.Token)
	if err != nil {
		t.Fatalf("verify issued access token: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("access token subject = %q, want user-1", claims.UserID)
	}

	// a new refresh cookie is set
	cookies := w.Result().Cookies()

	var refreshed bool

	for _, c := range cookies {
		if c.Name == "refresh_token" && c.Value != "" && c.Value != raw {
			refreshed = true
		}
	}

	if !refreshed {
		t.Error("no rotated refresh cookie in the response")
	}
}

func TestRefreshHandlerDisabled(t *testing.T) {
	h, jwtManager := newRefreshHandler(nil)
	r := setupRouter(http.MethodPost, "/auth/refresh", h.Refresh)

	raw, _, _, err := jwtManager.GenerateRefreshToken("user-1", "a@x.com", "Customer")
	if err != nil {
		t.Fatalf("generate refresh token: %v", err)
	}

	w := postWithCookie(r, "/auth/refresh", raw)

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404, body=%s", w.Code, w.Body.String())
	}
}

func TestLogoutHandler(t *testing.T) {
	t.Run("no_cookie_still_clears", func(t *testing.T) {
		store := &fakeRefreshStore{}

		h, _ := newRefreshHandler(store)
		r := setupRouter(http.MethodPost, "/auth/logout", h.Logout)

		w := postWithCookie(r, "/auth/logout", "")

		if w.Code != http.StatusNoContent {
			t.Fatalf("got status %d, want 204", w.Code)
		}

		if len(store.revoked) != 0 {
			t.Errorf("revoked %v without a presented token", store.revoked)
		}
	})

	t.Run("valid_cookie_revokes_that_token", func(t *testing.T) {
		store := &fakeRefreshStore{}

		h, jwtManager := newRefreshHandler(store)
		r := setupRouter(http.MethodPost, "/auth/logout", h.Logout)

		raw, jti, _, err := jwtManager.GenerateRefreshToken("user-1", "a@x.com", "Customer")
		if err != nil {
			t.Fatalf("generate refresh token: %v", err)
		}

		w := postWithCookie(r, "/auth/logout", raw)

		if w.Code != http.StatusNoContent {
			t.Fatalf("got status %d, want 204", w.Code)
		}

		if len(store.revoked) != 1 || store.revoked[0] != jti {
			t.Errorf("revoked = %v, want [%s]", store.revoked, jti)
		}

		// the cookie is cleared
		var cleared bool

		for _, c := range w.Result().Cookies() {
			if c.Name == "refresh_token" && c.Value == "" && c.MaxAge < 0 {
				cleared = true
			}
		}

		if !cleared {
			t.Error("refresh cookie not cleared on logout")
		}
	})
}

// Login with a refresh store persists a hashed token and sets the cookie.
func TestLoginStoresHashedRefreshToken(t *testing.T) {
	hash, err := security.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	stored := user.User{
		ID:           "user-7",
		Username:     "alice",
		Email:        "a@x.com",
		PasswordHash: hash,
		Role:         user.RoleCustomer,
	}

	users := &fakeUsersRepo{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			return stored, nil
		},
	}

	store := &fakeRefreshStore{}
	jwtManager := auth.NewManager("test-secret", 15*time.Minute, time.Hour)
	h := handlers.NewAuthHandler(users, users, jwtManager, store, config.Config{Env: "dev"})

	r := setupRouter(http.MethodPost, "/login", h.Login)

	body := `{"email":"a@x.com","password":"correct-horse"}`
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d refresh rows, want 1", len(store.inserted))
	}

	row := store.inserted[0]

	if row.UserID != stored.ID {
		t.Errorf("refresh row user = %q, want %q", row.UserID, stored.ID)
	}

	var raw string

	for _, c := range w.Result().Cookies() {
		if c.Name == "refresh_token" {
			raw = c.Value
		}
	}

	if raw == "" {
		t.Fatal("no refresh cookie set on login")
	}

	// only the hash is stored, and it matches the cookie token
	if row.TokenHash == raw {
		t.Error("raw refresh token stored in the database")
	}

	if row.TokenHash != jwtManager.HashRefreshToken(raw) {
		t.Error("stored hash does not match the issued token")
	}
}
