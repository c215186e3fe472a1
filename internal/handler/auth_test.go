package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/moviesvault/movies-vault/internal/config"
	"github.com/moviesvault/movies-vault/internal/model"
	"github.com/moviesvault/movies-vault/internal/repository"
	"github.com/moviesvault/movies-vault/internal/utils"
)

// memUserStore is an in-memory UserStore with the same duplicate and
// not-found semantics as the MySQL-backed repository.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]model.User // by id
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]model.User{}}
}

func (s *memUserStore) Create(_ context.Context, p repository.CreateUserParams, cost int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.Email == "" {
		p.Email = strings.ToLower(p.Username) + "@moviesvault.local"
	}
	for _, u := range s.users {
		if u.Username == p.Username {
			return "", repository.ErrUsernameExists
		}
		if u.Email == p.Email {
			return "", repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(p.Password, cost)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	u := model.User{
		ID:           uuid.NewString(),
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: hash,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[u.ID] = u
	return u.ID, nil
}

func (s *memUserStore) GetByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (s *memUserStore) GetByID(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *memUserStore) TouchLastLogin(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	u.LastLogin = &now
	s.users[id] = u
	return nil
}

func (s *memUserStore) UpdateProfile(_ context.Context, id string, p repository.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	if p.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*p.Email))
		for oid, other := range s.users {
			if oid != id && other.Email == email {
				return repository.ErrEmailExists
			}
		}
		u.Email = email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.ProfilePicture != nil {
		u.ProfilePicture = *p.ProfilePicture
	}
	if p.DateOfBirth != nil {
		dob := *p.DateOfBirth
		u.DateOfBirth = &dob
	}
	if p.FavoriteGenres != nil {
		u.FavoriteGenres = *p.FavoriteGenres
	}
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

func (s *memUserStore) UpdatePassword(_ context.Context, id, newPassword string, cost int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	hash, err := utils.HashPassword(newPassword, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	s.users[id] = u
	return nil
}

func (s *memUserStore) setActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	u.IsActive = active
	s.users[id] = u
}

// memBlacklist mirrors the revocation registry's idempotency and strict
// purge cutoff.
type memBlacklist struct {
	mu      sync.Mutex
	entries map[string]model.BlacklistedToken // by token hash
	failing bool
}

func newMemBlacklist() *memBlacklist {
	return &memBlacklist{entries: map[string]model.BlacklistedToken{}}
}

func (b *memBlacklist) Revoke(_ context.Context, token string, expiresAt time.Time) (model.BlacklistedToken, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return model.BlacklistedToken{}, sql.ErrConnDone
	}
	h := utils.HashTokenRaw(token)
	if e, ok := b.entries[h]; ok {
		return e, nil
	}
	if expiresAt.IsZero() {
		expiresAt = time.Now().UTC().Add(repository.DefaultBlacklistTTL)
	}
	e := model.BlacklistedToken{
		ID:            uint64(len(b.entries) + 1),
		Token:         token,
		TokenHash:     h,
		BlacklistedAt: time.Now().UTC(),
		ExpiresAt:     expiresAt,
	}
	b.entries[h] = e
	return e, nil
}

func (b *memBlacklist) IsRevoked(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return false, sql.ErrConnDone
	}
	_, ok := b.entries[utils.HashTokenRaw(token)]
	return ok, nil
}

func (b *memBlacklist) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for h, e := range b.entries {
		if e.ExpiresAt.Before(now) {
			delete(b.entries, h)
			n++
		}
	}
	return n, nil
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:      "unit-test-secret-key-0123456789",
		AccessTTLMin:   60,
		RefreshTTLDays: 7,
		BcryptCost:     4,
	}
}

func newTestAuth() (*AuthHandler, *memUserStore, *memBlacklist) {
	users := newMemUserStore()
	tokens := newMemBlacklist()
	return NewAuthHandler(testConfig(), users, tokens), users, tokens
}

func doJSON(e *echo.Echo, h echo.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func decodeAuthResp(t *testing.T, rec *httptest.ResponseRecorder) authResp {
	t.Helper()
	var resp authResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rec.Body.String())
	}
	return resp
}

func errorField(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var m map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode error body: %v (body %s)", err, rec.Body.String())
	}
	return m["error"]
}

func TestRegisterSuccess(t *testing.T) {
	h, _, _ := newTestAuth()
	e := echo.New()

	rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","password":"longpassword1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeAuthResp(t, rec)
	if resp.User.Username != "alice" {
		t.Errorf("username = %q", resp.User.Username)
	}
	if resp.User.Email != "alice@moviesvault.local" {
		t.Errorf("email = %q, want synthesized address", resp.User.Email)
	}
	if resp.Access == "" || resp.Refresh == "" {
		t.Fatal("expected both tokens in response")
	}

	// The returned tokens must verify against the signing secret and carry
	// the right type claim each.
	ac, err := utils.ParseToken(testConfig().JWTSecret, resp.Access)
	if err != nil || ac.TokenType != utils.TokenTypeAccess {
		t.Errorf("access claims = %+v, err %v", ac, err)
	}
	rc, err := utils.ParseToken(testConfig().JWTSecret, resp.Refresh)
	if err != nil || rc.TokenType != utils.TokenTypeRefresh {
		t.Errorf("refresh claims = %+v, err %v", rc, err)
	}
	if ac.UserID != resp.User.ID || rc.UserID != resp.User.ID {
		t.Error("token subject does not match created user")
	}
}

func TestRegisterValidation(t *testing.T) {
	h, _, _ := newTestAuth()
	e := echo.New()

	cases := []struct {
		name, body, wantErr string
	}{
		{"missing username", `{"password":"longpassword1"}`, "Username is required."},
		{"missing password", `{"username":"alice"}`, "Password is required."},
		{"short username", `{"username":"al","password":"longpassword1"}`, "Username must be at least 3 characters long."},
		{"short password", `{"username":"alice","password":"short"}`, "Password must be at least 8 characters long."},
		// Two characters even though the UTF-8 encoding is six bytes;
		// length limits count characters, not bytes.
		{"short multibyte username", `{"username":"日本","password":"longpassword1"}`, "Username must be at least 3 characters long."},
		{"short multibyte password", `{"username":"alice","password":"пароль"}`, "Password must be at least 8 characters long."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if got := errorField(t, rec); got != tc.wantErr {
				t.Errorf("error = %q, want %q", got, tc.wantErr)
			}
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	h, _, _ := newTestAuth()
	e := echo.New()

	body := `{"username":"alice","password":"longpassword1"}`
	if rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register", body); rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", rec.Code)
	}
	rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second register status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := errorField(t, rec); got != "Username already exists. Please choose a different username." {
		t.Errorf("error = %q", got)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	h, _, _ := newTestAuth()
	e := echo.New()

	doJSON(e, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","password":"longpassword1"}`)

	rec := doJSON(e, h.Login, http.MethodPost, "/v1/auth/login",
		`{"username":"alice","password":"wrongpassword"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := errorField(t, rec); got != "Invalid password. Please check your password." {
		t.Errorf("error = %q", got)
	}
}

func TestLoginUnknownUsername(t *testing.T) {
	h, _, _ := newTestAuth()
	e := echo.New()

	rec := doJSON(e, h.Login, http.MethodPost, "/v1/auth/login",
		`{"username":"nobody","password":"longpassword1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := errorField(t, rec); got != "Username does not exist. Please check your username or sign up." {
		t.Errorf("error = %q", got)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	h, users, _ := newTestAuth()
	e := echo.New()

	rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","password":"longpassword1"}`)
	resp := decodeAuthResp(t, rec)
	users.setActive(resp.User.ID, false)

	// Disabled wins over wrong password: the account state is checked
	// before the credential, so both bodies get the same answer.
	for _, pw := range []string{"longpassword1", "wrongpassword"} {
		rec := doJSON(e, h.Login, http.MethodPost, "/v1/auth/login",
			`{"username":"alice","password":"`+pw+`"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d for password %q", rec.Code, pw)
		}
		if got := errorField(t, rec); got != "Your account has been disabled. Please contact support." {
			t.Errorf("error = %q for password %q", got, pw)
		}
	}
}

func TestLoginTouchesLastLogin(t *testing.T) {
	h, users, _ := newTestAuth()
	e := echo.New()

	rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","password":"longpassword1"}`)
	resp := decodeAuthResp(t, rec)

	doJSON(e, h.Login, http.MethodPost, "/v1/auth/login",
		`{"username":"alice","password":"longpassword1"}`)
	u, err := users.GetByID(context.Background(), resp.User.ID)
	if err != nil {
		t.Fatal(err)
	}
	if u.LastLogin == nil {
		t.Error("last_login not recorded after login")
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	h, _, tokens := newTestAuth()
	e := echo.New()

	rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","password":"longpassword1"}`)
	resp := decodeAuthResp(t, rec)

	rec = doJSON(e, h.Logout, http.MethodPost, "/v1/auth/logout",
		`{"refresh":"`+resp.Refresh+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	revoked, err := tokens.IsRevoked(context.Background(), resp.Refresh)
	if err != nil {
		t.Fatal(err)
	}
	if !revoked {
		t.Fatal("refresh token not blacklisted after logout")
	}

	// The record inherits the token's own expiry rather than the fallback
	// retention window.
	claims, err := utils.ParseToken(testConfig().JWTSecret, resp.Refresh)
	if err != nil {
		t.Fatal(err)
	}
	entry, err := tokens.Revoke(context.Background(), resp.Refresh, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if !entry.ExpiresAt.Equal(claims.ExpiresAt) {
		t.Errorf("blacklist expiry = %v, want token expiry %v", entry.ExpiresAt, claims.ExpiresAt)
	}
}

func TestLogoutFailOpen(t *testing.T) {
	h, _, tokens := newTestAuth()
	e := echo.New()

	cases := []struct {
		name, body string
	}{
		{"empty body", `{}`},
		{"garbage token", `{"refresh":"not-a-jwt"}`},
		{"no body at all", ``},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(e, h.Logout, http.MethodPost, "/v1/auth/logout", tc.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			var m map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
				t.Fatal(err)
			}
			if m["message"] != "Logout successful" {
				t.Errorf("message = %q", m["message"])
			}
		})
	}

	t.Run("store failure suppressed", func(t *testing.T) {
		rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register",
			`{"username":"bob","password":"longpassword1"}`)
		resp := decodeAuthResp(t, rec)

		tokens.failing = true
		defer func() { tokens.failing = false }()
		rec = doJSON(e, h.Logout, http.MethodPost, "/v1/auth/logout",
			`{"refresh":"`+resp.Refresh+`"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 even when revocation fails", rec.Code)
		}
	})
}

func TestRefreshIssuesNewPair(t *testing.T) {
	h, _, _ := newTestAuth()
	e := echo.New()

	rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","password":"longpassword1"}`)
	first := decodeAuthResp(t, rec)

	rec = doJSON(e, h.Refresh, http.MethodPost, "/v1/auth/refresh",
		`{"refresh":"`+first.Refresh+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	second := decodeAuthResp(t, rec)
	if second.Access == "" || second.Refresh == "" {
		t.Fatal("expected a full new pair")
	}
	claims, err := utils.ParseToken(testConfig().JWTSecret, second.Access)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != first.User.ID {
		t.Error("rotated pair carries a different subject")
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	h, _, _ := newTestAuth()
	e := echo.New()

	rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","password":"longpassword1"}`)
	resp := decodeAuthResp(t, rec)

	rec = doJSON(e, h.Refresh, http.MethodPost, "/v1/auth/refresh",
		`{"refresh":"`+resp.Access+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, an access token must not rotate", rec.Code)
	}
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	h, _, _ := newTestAuth()
	e := echo.New()

	rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","password":"longpassword1"}`)
	resp := decodeAuthResp(t, rec)

	doJSON(e, h.Logout, http.MethodPost, "/v1/auth/logout",
		`{"refresh":"`+resp.Refresh+`"}`)

	rec = doJSON(e, h.Refresh, http.MethodPost, "/v1/auth/refresh",
		`{"refresh":"`+resp.Refresh+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, revoked refresh token must be rejected", rec.Code)
	}
	if got := errorField(t, rec); got != "refresh token revoked" {
		t.Errorf("error = %q", got)
	}
}

func TestRefreshRotationBlacklistsOldToken(t *testing.T) {
	users := newMemUserStore()
	tokens := newMemBlacklist()
	cfg := testConfig()
	cfg.BlacklistAfterRotation = true
	h := NewAuthHandler(cfg, users, tokens)
	e := echo.New()

	rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","password":"longpassword1"}`)
	resp := decodeAuthResp(t, rec)

	rec = doJSON(e, h.Refresh, http.MethodPost, "/v1/auth/refresh",
		`{"refresh":"`+resp.Refresh+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("first rotation status = %d", rec.Code)
	}

	// The spent token must not rotate a second time.
	rec = doJSON(e, h.Refresh, http.MethodPost, "/v1/auth/refresh",
		`{"refresh":"`+resp.Refresh+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("second rotation status = %d, want 401", rec.Code)
	}
}

func TestRefreshDisabledAccount(t *testing.T) {
	h, users, _ := newTestAuth()
	e := echo.New()

	rec := doJSON(e, h.Register, http.MethodPost, "/v1/auth/register",
		`{"username":"alice","password":"longpassword1"}`)
	resp := decodeAuthResp(t, rec)
	users.setActive(resp.User.ID, false)

	rec = doJSON(e, h.Refresh, http.MethodPost, "/v1/auth/refresh",
		`{"refresh":"`+resp.Refresh+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, disabled account must not rotate", rec.Code)
	}
}

func TestBlacklistIdempotentRevoke(t *testing.T) {
	tokens := newMemBlacklist()
	ctx := context.Background()

	exp := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	first, err := tokens.Revoke(ctx, "token-a", exp)
	if err != nil {
		t.Fatal(err)
	}
	second, err := tokens.Revoke(ctx, "token-a", exp.Add(48*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID || !first.ExpiresAt.Equal(second.ExpiresAt) {
		t.Fatal("second revoke must return the original record unchanged")
	}
}

func TestBlacklistPurgeCutoff(t *testing.T) {
	tokens := newMemBlacklist()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	tokens.Revoke(ctx, "expired", now.Add(-time.Minute))
	tokens.Revoke(ctx, "exactly-now", now)
	tokens.Revoke(ctx, "live", now.Add(time.Minute))

	n, err := tokens.PurgeExpired(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("purged %d, want 1 (cutoff is strictly before now)", n)
	}
	for tok, want := range map[string]bool{"expired": false, "exactly-now": true, "live": true} {
		got, _ := tokens.IsRevoked(ctx, tok)
		if got != want {
			t.Errorf("IsRevoked(%q) = %v, want %v", tok, got, want)
		}
	}
}
