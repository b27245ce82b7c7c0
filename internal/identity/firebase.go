package identity

import (
	"context"
	"fmt"
	"log/slog"

	"marketplace/internal/middleware"
	"marketplace/internal/observability"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// authClient is the subset of *auth.Client the gateway depends on.
type authClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	GetUsers(ctx context.Context, identifiers []auth.UserIdentifier) (*auth.GetUsersResult, error)
}

// FirebaseGateway is the Gateway backed by Firebase Authentication.
type FirebaseGateway struct {
	client authClient
}

// NewFirebaseGateway initialises a Firebase app for projectID. When
// credentialsFile is empty, application default credentials are used
// (or the Auth emulator when FIREBASE_AUTH_EMULATOR_HOST is set).
func NewFirebaseGateway(ctx context.Context, projectID, credentialsFile string) (*FirebaseGateway, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app init: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth init: %w", err)
	}

	return &FirebaseGateway{client: client}, nil
}

func (g *FirebaseGateway) VerifyToken(ctx context.Context, idToken string) (string, error) {
	ctx, span := observability.StartClientSpan(ctx, "firebase", "VerifyIDToken")
	token, err := g.client.VerifyIDToken(ctx, idToken)
	observability.EndSpan(span, err)
	if err != nil {
		observability.IdentityLookups.WithLabelValues("verify_token", observability.OutcomeError).Inc()
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	observability.IdentityLookups.WithLabelValues("verify_token", observability.OutcomeOK).Inc()
	return token.UID, nil
}

func (g *FirebaseGateway) GetUser(ctx context.Context, uid string) (*User, error) {
	ctx, span := observability.StartClientSpan(ctx, "firebase", "GetUser")
	record, err := g.client.GetUser(ctx, uid)
	observability.EndSpan(span, err)
	if err != nil {
		if auth.IsUserNotFound(err) {
			observability.IdentityLookups.WithLabelValues("get_user", observability.OutcomeNotFound).Inc()
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, uid)
		}
		observability.IdentityLookups.WithLabelValues("get_user", observability.OutcomeError).Inc()
		return nil, fmt.Errorf("firebase get user %s: %w", uid, err)
	}
	observability.IdentityLookups.WithLabelValues("get_user", observability.OutcomeOK).Inc()
	return toUser(record), nil
}

func (g *FirebaseGateway) GetUsers(ctx context.Context, uids []string) (map[string]*User, error) {
	users := make(map[string]*User, len(uids))
	for _, batch := range chunk(uids, MaxBatchSize) {
		ids := make([]auth.UserIdentifier, 0, len(batch))
		for _, uid := range batch {
			ids = append(ids, auth.UIDIdentifier{UID: uid})
		}

		spanCtx, span := observability.StartClientSpan(ctx, "firebase", "GetUsers")
		result, err := g.client.GetUsers(spanCtx, ids)
		observability.EndSpan(span, err)
		if err != nil {
			observability.IdentityLookups.WithLabelValues("get_users", observability.OutcomeError).Inc()
			return nil, fmt.Errorf("firebase get users: %w", err)
		}
		observability.IdentityLookups.WithLabelValues("get_users", observability.OutcomeOK).Inc()

		for _, record := range result.Users {
			if u := toUser(record); u != nil {
				users[u.UID] = u
			}
		}
		if len(result.NotFound) > 0 {
			middleware.Logger.DebugContext(ctx, "identity batch lookup missed users",
				slog.Int("missing", len(result.NotFound)))
		}
	}
	return users, nil
}

func toUser(record *auth.UserRecord) *User {
	if record == nil || record.UserInfo == nil {
		return nil
	}
	return &User{
		UID:         record.UID,
		DisplayName: record.DisplayName,
		PhotoURL:    record.PhotoURL,
	}
}
