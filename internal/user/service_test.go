package user

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-forces/internal/codeforces"
)

type fakeUserStore struct {
	byName        map[string]*User
	nextID        int
	handleUpdates map[int]codeforces.UserInfo
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byName:        make(map[string]*User),
		handleUpdates: make(map[int]codeforces.UserInfo),
	}
}

func (s *fakeUserStore) CreateUser(_ context.Context, u *User) (*User, error) {
	if _, ok := s.byName[u.Username]; ok {
		return nil, ErrUsernameTaken
	}
	s.nextID++
	u.ID = s.nextID
	s.byName[u.Username] = u
	return u, nil
}

func (s *fakeUserStore) GetByUsername(_ context.Context, username string) (*User, error) {
	u, ok := s.byName[username]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id int) (*User, error) {
	for _, u := range s.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeUserStore) UpdateHandle(_ context.Context, userID int, info codeforces.UserInfo) error {
	s.handleUpdates[userID] = info
	return nil
}

func (s *fakeUserStore) SearchUsers(context.Context, string) ([]User, error) {
	return nil, nil
}

type fakeChecker struct {
	infos []codeforces.UserInfo
	err   error
}

func (f fakeChecker) UserInfo(context.Context, []string) ([]codeforces.UserInfo, error) {
	return f.infos, f.err
}

func newTestService(store Store, cf HandleChecker) *Service {
	return NewService(store, cf, "test-secret", time.Hour)
}

func TestRegisterHashesPassword(t *testing.T) {
	req := require.New(t)
	store := newFakeUserStore()
	svc := newTestService(store, fakeChecker{})

	u, err := svc.Register(context.Background(), &RegisterRequest{Username: "alice", Password: "correcthorse"})
	req.NoError(err)
	req.NotEqual("correcthorse", u.Password)
	req.NoError(bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("correcthorse")))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	req := require.New(t)
	store := newFakeUserStore()
	svc := newTestService(store, fakeChecker{})

	_, err := svc.Register(context.Background(), &RegisterRequest{Username: "alice", Password: "correcthorse"})
	req.NoError(err)
	_, err = svc.Register(context.Background(), &RegisterRequest{Username: "alice", Password: "batterystaple"})
	req.ErrorIs(err, ErrUsernameTaken)
}

func TestLoginAndValidateToken(t *testing.T) {
	req := require.New(t)
	store := newFakeUserStore()
	svc := newTestService(store, fakeChecker{})

	_, err := svc.Register(context.Background(), &RegisterRequest{Username: "alice", Password: "correcthorse"})
	req.NoError(err)

	res, err := svc.Login(context.Background(), &LoginRequest{Username: "alice", Password: "correcthorse"})
	req.NoError(err)
	req.Equal("alice", res.Username)
	req.NotEmpty(res.AccessToken)

	id, username, err := svc.ValidateToken(res.AccessToken)
	req.NoError(err)
	req.Equal(res.ID, id)
	req.Equal("alice", username)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	req := require.New(t)
	store := newFakeUserStore()
	svc := newTestService(store, fakeChecker{})

	_, err := svc.Register(context.Background(), &RegisterRequest{Username: "alice", Password: "correcthorse"})
	req.NoError(err)

	_, err = svc.Login(context.Background(), &LoginRequest{Username: "alice", Password: "wrong"})
	req.ErrorIs(err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), &LoginRequest{Username: "ghost", Password: "whatever"})
	req.ErrorIs(err, ErrInvalidCredentials)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestService(newFakeUserStore(), fakeChecker{})

	_, _, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	req := require.New(t)
	store := newFakeUserStore()
	svc := newTestService(store, fakeChecker{})

	_, err := svc.Register(context.Background(), &RegisterRequest{Username: "alice", Password: "correcthorse"})
	req.NoError(err)
	res, err := svc.Login(context.Background(), &LoginRequest{Username: "alice", Password: "correcthorse"})
	req.NoError(err)

	other := NewService(store, fakeChecker{}, "different-secret", time.Hour)
	_, _, err = other.ValidateToken(res.AccessToken)
	req.Error(err)
}

func TestVerifyHandleLinksAndSnapshotsStats(t *testing.T) {
	req := require.New(t)
	store := newFakeUserStore()
	info := codeforces.UserInfo{Handle: "tourist", Rating: 3800, Rank: "legendary grandmaster"}
	svc := newTestService(store, fakeChecker{infos: []codeforces.UserInfo{info}})

	got, err := svc.VerifyHandle(context.Background(), 7, "tourist")
	req.NoError(err)
	req.Equal(info, *got)
	req.Equal(info, store.handleUpdates[7])
}

func TestVerifyHandleUnknownHandle(t *testing.T) {
	svc := newTestService(newFakeUserStore(), fakeChecker{})

	_, err := svc.VerifyHandle(context.Background(), 7, "nobody")
	require.ErrorIs(t, err, ErrHandleNotFound)
}

func TestVerifyHandleUpstreamFailurePropagates(t *testing.T) {
	svc := newTestService(newFakeUserStore(), fakeChecker{err: fmt.Errorf("%w: down", codeforces.ErrUpstream)})

	_, err := svc.VerifyHandle(context.Background(), 7, "tourist")
	require.True(t, errors.Is(err, codeforces.ErrUpstream))
}
