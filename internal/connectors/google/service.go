package google

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// Credentials selects how a Google API client authenticates.
// Exactly one of Token, CredentialsFile or HTTPClient should be set.
type Credentials struct {
	// Token is an OAuth access token with the drive.readonly scope.
	Token string

	// CredentialsFile is a service account JSON key file.
	CredentialsFile string

	// HTTPClient is used as-is, for tests and custom transports.
	HTTPClient *http.Client

	// Endpoint overrides the API base URL.
	Endpoint string
}

func (c Credentials) options() ([]option.ClientOption, error) {
	var opts []option.ClientOption
	switch {
	case c.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(c.HTTPClient))
	case c.Token != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.Token, TokenType: "Bearer"})
		opts = append(opts, option.WithTokenSource(ts))
	case c.CredentialsFile != "":
		opts = append(opts,
			option.WithCredentialsFile(c.CredentialsFile),
			option.WithScopes(drive.DriveReadonlyScope),
		)
	default:
		return nil, fmt.Errorf("google credentials require a token or a credentials file: %w", domain.ErrInvalidInput)
	}
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}
	return opts, nil
}

// NewDriveService creates a Google Drive API service.
func NewDriveService(ctx context.Context, creds Credentials) (*drive.Service, error) {
	opts, err := creds.options()
	if err != nil {
		return nil, err
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return svc, nil
}
