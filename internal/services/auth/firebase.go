package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	firebase "firebase.google.com/go"
	fbauth "firebase.google.com/go/auth"
	"google.golang.org/api/option"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier accepts Firebase Authentication ID tokens, so the uid is
// the same one the mobile app signs in with.
type FirebaseVerifier struct {
	client idTokenVerifier
}

func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if file := strings.TrimSpace(credentialsFile); file != "" {
		opts = append(opts, option.WithCredentialsFile(file))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: strings.TrimSpace(projectID)}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (AccessClaims, error) {
	if v == nil || v.client == nil || strings.TrimSpace(raw) == "" {
		return AccessClaims{}, ErrUnauthorized
	}

	token, err := v.client.VerifyIDToken(ctx, raw)
	if err != nil || token == nil || strings.TrimSpace(token.UID) == "" {
		return AccessClaims{}, ErrUnauthorized
	}

	return AccessClaims{
		UID:       token.UID,
		Provider:  ProviderFirebase,
		ExpiresAt: time.Unix(token.Expires, 0).UTC(),
	}, nil
}
