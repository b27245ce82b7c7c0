// Package identity resolves marketplace users against the external identity
// provider. Users are never persisted locally; every read goes to the provider.
package identity

import (
	"context"
	"errors"
)

// MaxBatchSize is the largest number of uids the provider resolves in one call.
const MaxBatchSize = 100

var (
	// ErrUserNotFound is returned when the provider has no user with the given uid.
	ErrUserNotFound = errors.New("identity: user not found")
	// ErrInvalidToken is returned when an ID token cannot be verified.
	ErrInvalidToken = errors.New("identity: invalid token")
)

// User is a user's public profile as known to the identity provider.
type User struct {
	UID         string
	DisplayName string
	PhotoURL    string
}

// Gateway verifies caller tokens and looks up user profiles.
type Gateway interface {
	// VerifyToken returns the uid an ID token was issued for.
	VerifyToken(ctx context.Context, idToken string) (string, error)
	// GetUser returns ErrUserNotFound when the uid is unknown.
	GetUser(ctx context.Context, uid string) (*User, error)
	// GetUsers resolves many uids at once. Unknown uids are omitted from the result.
	GetUsers(ctx context.Context, uids []string) (map[string]*User, error)
}

// chunk splits uids into consecutive slices of at most size elements,
// dropping empty strings and duplicates.
func chunk(uids []string, size int) [][]string {
	seen := make(map[string]struct{}, len(uids))
	unique := make([]string, 0, len(uids))
	for _, uid := range uids {
		if uid == "" {
			continue
		}
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		unique = append(unique, uid)
	}

	var chunks [][]string
	for len(unique) > 0 {
		n := min(size, len(unique))
		chunks = append(chunks, unique[:n])
		unique = unique[n:]
	}
	return chunks
}
