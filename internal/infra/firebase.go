// README: Firebase Admin SDK initialisation: ID-token verifier and Firestore client.
package infra

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseToken holds the verified token data used by downstream middleware.
type FirebaseToken struct {
	UID    string
	Claims map[string]interface{}
}

// TokenVerifier verifies a raw Firebase ID token string and returns token data.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error)
}

// Firebase bundles the Admin SDK clients the service depends on.
type Firebase struct {
	app       *firebase.App
	auth      *auth.Client
	Firestore *firestore.Client
}

// NewFirebase initialises the Admin SDK. If credentialsFile is non-empty it is
// used as the service-account JSON path; otherwise application-default
// credentials / GOOGLE_APPLICATION_CREDENTIALS are used. projectID is required
// so the SDK can construct the correct token-verification URL.
func NewFirebase(ctx context.Context, projectID, credentialsFile string) (*Firebase, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Auth: %w", err)
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Firestore: %w", err)
	}
	return &Firebase{app: app, auth: authClient, Firestore: fs}, nil
}

func (f *Firebase) VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error) {
	token, err := f.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return &FirebaseToken{UID: token.UID, Claims: token.Claims}, nil
}

func (f *Firebase) Close() error {
	return f.Firestore.Close()
}
