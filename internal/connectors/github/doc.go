// Package github implements a document source for compliance documents kept
// in a GitHub repository.
//
// # Architecture
//
// The source follows the driven port pattern defined in [driven.DocumentSource]:
//
//   - Source: validates access and streams repository files as raw documents
//   - Client: handles GitHub API communication with rate limiting
//   - Config: repository coordinates, path filters and credentials
//
// # Fetching
//
// A fetch lists the branch tree in a single recursive call and downloads each
// accepted file as a git blob. Files are filtered by path prefix, glob
// pattern and a caller-supplied name filter, which normally asks the
// normaliser registry whether the format is supported.
//
// # Authentication
//
// A personal access token is optional for public repositories and required
// for private ones. Authenticated requests get 5,000 API calls per hour.
//
// # Rate Limiting
//
// Requests are throttled proactively with a token bucket and reactively from
// the X-RateLimit-* response headers, waiting for the reset when the
// remaining quota falls below a buffer.
package github
