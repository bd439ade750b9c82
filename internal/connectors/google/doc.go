// Package google provides shared infrastructure for Google API document
// sources.
//
// It contains:
//   - Service factories that build authenticated API clients from a static
//     access token or a service account key file
//   - Error classification for common Google API errors (401, 403, 404, 429)
//   - Rate limiting to respect Google API quotas
//
// # Usage
//
//	svc, err := google.NewDriveService(ctx, google.Credentials{CredentialsFile: "sa.json"})
//
// # Scopes
//
// Drive sources only read: https://www.googleapis.com/auth/drive.readonly.
// Share the policy folder with the service account's email address to grant
// it access.
package google
