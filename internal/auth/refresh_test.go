package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/authapi/internal/model"
)

func seedUser(s *memStore) *model.User {
	u := &model.User{ID: "user-1", Email: "a@example.com", Name: "Alice", PasswordHash: "digest:password123"}
	s.putUser(u)
	return u
}

func TestRefreshTokens_IssuePersistsSevenDayToken(t *testing.T) {
	store := newMemStore()
	clk := newClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	rt := NewRefreshTokens(store.tokenRepo, store.userRepo, clk.Now)

	value := rt.Issue(context.Background(), "user-1").Unwrap()
	if value == "" {
		t.Fatal("token should not be empty")
	}

	record, _ := store.tokenRepo.FindByToken(context.Background(), value)
	if record == nil {
		t.Fatal("token should be persisted")
	}
	if record.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", record.UserID)
	}
	if want := clk.Now().Add(7 * 24 * time.Hour); !record.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", record.ExpiresAt, want)
	}
}

func TestRefreshTokens_IssueGeneratesDistinctTokens(t *testing.T) {
	store := newMemStore()
	rt := NewRefreshTokens(store.tokenRepo, store.userRepo, nil)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		v := rt.Issue(context.Background(), "user-1").Unwrap()
		if seen[v] {
			t.Fatalf("duplicate token generated: %s", v)
		}
		seen[v] = true
	}
}

func TestRefreshTokens_IssueStoreFailure(t *testing.T) {
	repo := &mockRefreshTokenRepo{
		createFn: func(ctx context.Context, token *model.RefreshToken) error {
			return errors.New("connection reset")
		},
	}
	rt := NewRefreshTokens(repo, &mockUserRepo{}, nil)

	r := rt.Issue(context.Background(), "user-1")
	if r.IsOk() {
		t.Fatal("Issue should fail when the store fails")
	}
	if got := r.UnwrapErr().Kind; got != model.ErrCodeDatabase {
		t.Errorf("Kind = %q, want %q", got, model.ErrCodeDatabase)
	}
}

func TestRefreshTokens_Exchange(t *testing.T) {
	ctx := context.Background()
	issuedAt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		advance    time.Duration
		presented  string
		dropOwner  bool
		wantKind   string
		wantPurged bool
	}{
		{name: "valid", advance: time.Hour},
		{name: "one second before expiry", advance: RefreshTokenTTL - time.Second},
		{name: "exactly at expiry", advance: RefreshTokenTTL, wantKind: model.ErrCodeInvalidToken, wantPurged: true},
		{name: "after expiry", advance: RefreshTokenTTL + time.Hour, wantKind: model.ErrCodeInvalidToken, wantPurged: true},
		{name: "unknown token", advance: time.Hour, presented: "unknown", wantKind: model.ErrCodeInvalidToken},
		{name: "empty token", advance: time.Hour, presented: "-", wantKind: model.ErrCodeInvalidToken},
		{name: "orphaned token", advance: time.Hour, dropOwner: true, wantKind: model.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			owner := seedUser(store)
			clk := newClock(issuedAt)
			rt := NewRefreshTokens(store.tokenRepo, store.userRepo, clk.Now)

			value := rt.Issue(ctx, owner.ID).Unwrap()
			clk.Advance(tt.advance)
			if tt.dropOwner {
				_ = store.userRepo.DeleteByID(ctx, owner.ID)
			}

			presented := value
			switch tt.presented {
			case "":
			case "-":
				presented = ""
			default:
				presented = tt.presented
			}

			r := rt.Exchange(ctx, presented)
			if tt.wantKind == "" {
				if r.IsErr() {
					t.Fatalf("unexpected error: %v", r.UnwrapErr())
				}
				if got := r.Unwrap(); got.ID != owner.ID {
					t.Errorf("owner = %q, want %q", got.ID, owner.ID)
				}
				if !store.hasToken(value) {
					t.Error("valid token must not be removed by exchange")
				}
				return
			}

			if r.IsOk() {
				t.Fatal("Exchange should fail")
			}
			if got := r.UnwrapErr().Kind; got != tt.wantKind {
				t.Errorf("Kind = %q, want %q", got, tt.wantKind)
			}
			if tt.wantPurged && store.hasToken(value) {
				t.Error("expired token should be purged")
			}
		})
	}
}

func TestRefreshTokens_ExchangeIsRepeatable(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	owner := seedUser(store)
	rt := NewRefreshTokens(store.tokenRepo, store.userRepo, nil)

	value := rt.Issue(ctx, owner.ID).Unwrap()
	for i := 0; i < 3; i++ {
		if r := rt.Exchange(ctx, value); r.IsErr() {
			t.Fatalf("exchange #%d failed: %v", i+1, r.UnwrapErr())
		}
	}
}

func TestRefreshTokens_ExpiredPurgeFailureStillRejects(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	deleteCalled := false
	repo := &mockRefreshTokenRepo{
		findByTokenFn: func(ctx context.Context, token string) (*model.RefreshToken, error) {
			return &model.RefreshToken{Token: token, UserID: "user-1", ExpiresAt: now.Add(-time.Minute)}, nil
		},
		deleteByTokenFn: func(ctx context.Context, token string) error {
			deleteCalled = true
			return errors.New("db down")
		},
	}
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			t.Error("owner lookup must not happen for an expired token")
			return nil, nil
		},
	}
	rt := NewRefreshTokens(repo, users, func() time.Time { return now })

	r := rt.Exchange(context.Background(), "stale")
	if !deleteCalled {
		t.Error("expired token should be deleted")
	}
	if r.IsOk() || r.UnwrapErr().Kind != model.ErrCodeInvalidToken {
		t.Errorf("want INVALID_TOKEN, got %#v", r)
	}
}

func TestRefreshTokens_ExchangeLookupFailure(t *testing.T) {
	repo := &mockRefreshTokenRepo{
		findByTokenFn: func(ctx context.Context, token string) (*model.RefreshToken, error) {
			return nil, errors.New("timeout")
		},
	}
	rt := NewRefreshTokens(repo, &mockUserRepo{}, nil)

	r := rt.Exchange(context.Background(), "any")
	if r.IsOk() || r.UnwrapErr().Kind != model.ErrCodeDatabase {
		t.Errorf("want DATABASE_ERROR, got %#v", r)
	}
}

func TestRefreshTokens_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	store := newMemStore()
	store.putToken(&model.RefreshToken{Token: "old", ExpiresAt: now.Add(-48 * time.Hour)})
	store.putToken(&model.RefreshToken{Token: "recent", ExpiresAt: now.Add(-time.Hour)})
	store.putToken(&model.RefreshToken{Token: "live", ExpiresAt: now.Add(time.Hour)})
	rt := NewRefreshTokens(store.tokenRepo, store.userRepo, func() time.Time { return now })

	n, err := rt.PurgeExpired(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}
	if store.hasToken("old") {
		t.Error("token expired beyond retention should be purged")
	}
	if !store.hasToken("recent") || !store.hasToken("live") {
		t.Error("tokens within retention must remain")
	}
}
