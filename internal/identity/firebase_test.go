package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authClientStub struct {
	verifyFn   func(context.Context, string) (*auth.Token, error)
	getUserFn  func(context.Context, string) (*auth.UserRecord, error)
	getUsersFn func(context.Context, []auth.UserIdentifier) (*auth.GetUsersResult, error)
}

func (s *authClientStub) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	return s.verifyFn(ctx, idToken)
}
func (s *authClientStub) GetUser(ctx context.Context, uid string) (*auth.UserRecord, error) {
	return s.getUserFn(ctx, uid)
}
func (s *authClientStub) GetUsers(ctx context.Context, ids []auth.UserIdentifier) (*auth.GetUsersResult, error) {
	return s.getUsersFn(ctx, ids)
}

func record(uid string) *auth.UserRecord {
	return &auth.UserRecord{UserInfo: &auth.UserInfo{
		UID:         uid,
		DisplayName: "name-" + uid,
		PhotoURL:    "https://img.example/" + uid,
	}}
}

func TestFirebaseGateway_VerifyToken(t *testing.T) {
	g := &FirebaseGateway{client: &authClientStub{
		verifyFn: func(_ context.Context, token string) (*auth.Token, error) {
			if token == "good" {
				return &auth.Token{UID: "u1"}, nil
			}
			return nil, errors.New("signature mismatch")
		},
	}}

	uid, err := g.VerifyToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	_, err = g.VerifyToken(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFirebaseGateway_GetUser(t *testing.T) {
	g := &FirebaseGateway{client: &authClientStub{
		getUserFn: func(_ context.Context, uid string) (*auth.UserRecord, error) {
			if uid == "down" {
				return nil, errors.New("backend unavailable")
			}
			return record(uid), nil
		},
	}}

	u, err := g.GetUser(context.Background(), "seller-1")
	require.NoError(t, err)
	assert.Equal(t, &User{UID: "seller-1", DisplayName: "name-seller-1", PhotoURL: "https://img.example/seller-1"}, u)

	_, err = g.GetUser(context.Background(), "down")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

func TestFirebaseGateway_GetUsers_ChunksAndSkipsMissing(t *testing.T) {
	var calls []int
	g := &FirebaseGateway{client: &authClientStub{
		getUsersFn: func(_ context.Context, ids []auth.UserIdentifier) (*auth.GetUsersResult, error) {
			calls = append(calls, len(ids))
			res := &auth.GetUsersResult{}
			for _, id := range ids {
				uid := id.(auth.UIDIdentifier).UID
				if uid == "u-missing" {
					res.NotFound = append(res.NotFound, id)
					continue
				}
				res.Users = append(res.Users, record(uid))
			}
			return res, nil
		},
	}}

	uids := []string{"u-missing"}
	for i := 0; i < 150; i++ {
		uids = append(uids, fmt.Sprintf("u%d", i))
	}
	uids = append(uids, "u0", "")

	users, err := g.GetUsers(context.Background(), uids)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 51}, calls)
	assert.Len(t, users, 150)
	assert.Equal(t, "name-u42", users["u42"].DisplayName)
	assert.NotContains(t, users, "u-missing")
}

func TestFirebaseGateway_GetUsers_Empty(t *testing.T) {
	g := &FirebaseGateway{client: &authClientStub{
		getUsersFn: func(context.Context, []auth.UserIdentifier) (*auth.GetUsersResult, error) {
			t.Fatal("provider must not be called for an empty uid list")
			return nil, nil
		},
	}}

	users, err := g.GetUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestFirebaseGateway_GetUsers_Error(t *testing.T) {
	g := &FirebaseGateway{client: &authClientStub{
		getUsersFn: func(context.Context, []auth.UserIdentifier) (*auth.GetUsersResult, error) {
			return nil, errors.New("quota exceeded")
		},
	}}

	_, err := g.GetUsers(context.Background(), []string{"a"})
	assert.Error(t, err)
}

func TestChunk(t *testing.T) {
	assert.Nil(t, chunk(nil, 3))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, chunk([]string{"a", "b", "a", "", "c"}, 2))
}
