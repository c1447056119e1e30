package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/authapi/internal/model"
	"github.com/hitoshi/authapi/internal/repository"
	"github.com/hitoshi/authapi/internal/result"
	"github.com/hitoshi/authapi/internal/security"
	"github.com/hitoshi/authapi/internal/token"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn func(ctx context.Context, email string) (*model.User, error)
	createFn      func(ctx context.Context, user *model.User) error
	updateFn      func(ctx context.Context, user *model.User) error
	deleteByIDFn  func(ctx context.Context, id string) error
	listFn        func(ctx context.Context, limit, offset int) ([]*model.User, error)
	countFn       func(ctx context.Context) (int, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

type mockRefreshTokenRepo struct {
	createFn              func(ctx context.Context, token *model.RefreshToken) error
	findByTokenFn         func(ctx context.Context, token string) (*model.RefreshToken, error)
	deleteByTokenFn       func(ctx context.Context, token string) error
	deleteByUserIDFn      func(ctx context.Context, userID string) error
	deleteExpiredBeforeFn func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *mockRefreshTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	if m.createFn != nil {
		return m.createFn(ctx, token)
	}
	return nil
}

func (m *mockRefreshTokenRepo) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	if m.findByTokenFn != nil {
		return m.findByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockRefreshTokenRepo) DeleteByToken(ctx context.Context, token string) error {
	if m.deleteByTokenFn != nil {
		return m.deleteByTokenFn(ctx, token)
	}
	return nil
}

func (m *mockRefreshTokenRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

func (m *mockRefreshTokenRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.deleteExpiredBeforeFn != nil {
		return m.deleteExpiredBeforeFn(ctx, cutoff)
	}
	return 0, nil
}

type mockHasher struct {
	hashFn   func(password string) result.Result[string, error]
	verifyFn func(password, digest string) result.Result[bool, error]
}

func (m *mockHasher) Hash(password string) result.Result[string, error] {
	if m.hashFn != nil {
		return m.hashFn(password)
	}
	return result.Ok[string, error]("digest:" + password)
}

func (m *mockHasher) Verify(password, digest string) result.Result[bool, error] {
	if m.verifyFn != nil {
		return m.verifyFn(password, digest)
	}
	return result.Ok[bool, error](digest == "digest:"+password)
}

type recordingRecorder struct {
	registrations []string
	logins        []string
	refreshes     []string
}

func (r *recordingRecorder) RecordRegistration(outcome string) {
	r.registrations = append(r.registrations, outcome)
}
func (r *recordingRecorder) RecordLogin(outcome string)   { r.logins = append(r.logins, outcome) }
func (r *recordingRecorder) RecordRefresh(outcome string) { r.refreshes = append(r.refreshes, outcome) }

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.RefreshTokenRepository = (*mockRefreshTokenRepo)(nil)
var _ PasswordHasher = (*mockHasher)(nil)
var _ Recorder = (*recordingRecorder)(nil)

// --- インメモリストア ---

// memStore はモックの関数フィールドをmapで裏付けるテスト用ストア。
type memStore struct {
	mu     sync.Mutex
	users  map[string]*model.User
	tokens map[string]*model.RefreshToken

	userRepo  *mockUserRepo
	tokenRepo *mockRefreshTokenRepo
}

func newMemStore() *memStore {
	s := &memStore{
		users:  map[string]*model.User{},
		tokens: map[string]*model.RefreshToken{},
	}

	s.userRepo = &mockUserRepo{
		findByIDFn: func(_ context.Context, id string) (*model.User, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if u, ok := s.users[id]; ok {
				cp := *u
				return &cp, nil
			}
			return nil, nil
		},
		findByEmailFn: func(_ context.Context, email string) (*model.User, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, u := range s.users {
				if u.Email == email {
					cp := *u
					return &cp, nil
				}
			}
			return nil, nil
		},
		createFn: func(_ context.Context, user *model.User) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, u := range s.users {
				if u.Email == user.Email {
					return repository.ErrDuplicate
				}
			}
			cp := *user
			s.users[user.ID] = &cp
			return nil
		},
		deleteByIDFn: func(_ context.Context, id string) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.users[id]; !ok {
				return repository.ErrNotFound
			}
			delete(s.users, id)
			return nil
		},
	}

	s.tokenRepo = &mockRefreshTokenRepo{
		createFn: func(_ context.Context, t *model.RefreshToken) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			cp := *t
			s.tokens[t.Token] = &cp
			return nil
		},
		findByTokenFn: func(_ context.Context, value string) (*model.RefreshToken, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if t, ok := s.tokens[value]; ok {
				cp := *t
				return &cp, nil
			}
			return nil, nil
		},
		deleteByTokenFn: func(_ context.Context, value string) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.tokens, value)
			return nil
		},
		deleteExpiredBeforeFn: func(_ context.Context, cutoff time.Time) (int64, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			var n int64
			for k, t := range s.tokens {
				if !t.ExpiresAt.After(cutoff) {
					delete(s.tokens, k)
					n++
				}
			}
			return n, nil
		},
	}

	return s
}

func (s *memStore) putUser(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
}

func (s *memStore) putToken(t *model.RefreshToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tokens[t.Token] = &cp
}

func (s *memStore) hasToken(value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[value]
	return ok
}

// --- 共通ヘルパー ---

const testSecret = "test-secret-key-that-is-at-least-32-chars"

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(t time.Time) *clock { return &clock{now: t} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestValidator() *InputValidator {
	return NewInputValidator(security.NewTextSanitizer())
}

type fixture struct {
	store    *memStore
	clock    *clock
	hasher   *mockHasher
	recorder *recordingRecorder
	service  *Service
}

func newFixture() *fixture {
	f := &fixture{
		store:    newMemStore(),
		clock:    newClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		hasher:   &mockHasher{},
		recorder: &recordingRecorder{},
	}
	codec := token.NewCodec(token.WithClock(f.clock.Now), token.WithLogger(quietLogger()))
	refresh := NewRefreshTokens(f.store.tokenRepo, f.store.userRepo, f.clock.Now)
	f.service = NewService(
		f.store.userRepo,
		refresh,
		f.hasher,
		codec,
		newTestValidator(),
		ServiceConfig{JWT: token.Config{Secret: testSecret, ExpirationMinutes: 60}},
		WithRecorder(f.recorder),
		WithClock(f.clock.Now),
	)
	return f
}
