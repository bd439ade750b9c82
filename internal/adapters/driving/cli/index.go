package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/complyqa/internal/connectors"
	"github.com/custodia-labs/complyqa/internal/connectors/filesystem"
	"github.com/custodia-labs/complyqa/internal/connectors/github"
	"github.com/custodia-labs/complyqa/internal/connectors/google"
	"github.com/custodia-labs/complyqa/internal/connectors/google/drive"
	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

var (
	indexScope   []string
	indexWatch   bool
	indexExts    string
	indexMaxSize int64

	githubBranch   string
	githubPaths    string
	githubPatterns string
	githubToken    string
	githubBaseURL  string

	gdriveCredentials  string
	gdriveToken        string
	gdriveContentTypes string
	gdriveNoRecursive  bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index compliance documents",
	Long: `Reads documents from a file or directory, splits them into fragments and
stores the fragments with their embeddings so questions can retrieve them.

Supported formats: plain text, Markdown, HTML, PDF and DOCX.
Re-indexing a document replaces its fragments.

Use --watch to keep the index in sync with the directory until interrupted.
Use the github and gdrive subcommands to index remote sources.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexPath,
}

var indexGitHubCmd = &cobra.Command{
	Use:   "github [owner/repo]",
	Short: "Index documents from a GitHub repository",
	Long: `Indexes the supported documents in a GitHub repository branch.
The token defaults to the GITHUB_TOKEN environment variable and is only
needed for private repositories or higher rate limits.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexGitHub,
}

var indexGDriveCmd = &cobra.Command{
	Use:   "gdrive [folder-ids]",
	Short: "Index documents from Google Drive folders",
	Long: `Indexes the documents in one or more Google Drive folders, given as a
comma-separated list of folder IDs or folder URLs. Google Docs are exported
as text and Google Sheets as CSV.

Authenticate with a service account key (--credentials, defaulting to
GOOGLE_APPLICATION_CREDENTIALS) or an OAuth access token (--token).`,
	Args: cobra.ExactArgs(1),
	RunE: runIndexGDrive,
}

var removeCmd = &cobra.Command{
	Use:   "remove [document-id...]",
	Short: "Remove documents from the index",
	Long:  `Deletes every fragment of the given documents. Document IDs are shown in answer sources.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRemove,
}

func init() {
	indexCmd.PersistentFlags().StringArrayVar(&indexScope, "scope", nil,
		"metadata key=value attached to every indexed document (repeatable)")
	indexCmd.Flags().BoolVarP(&indexWatch, "watch", "w", false, "keep watching the directory for changes")
	indexCmd.Flags().StringVar(&indexExts, "ext", "", "comma-separated file extensions to include (default: all supported)")
	indexCmd.Flags().Int64Var(&indexMaxSize, "max-size", 0, "skip files larger than this many bytes")

	indexGitHubCmd.Flags().StringVar(&githubBranch, "branch", "", "branch to index (default: repository default)")
	indexGitHubCmd.Flags().StringVar(&githubPaths, "path", "", "comma-separated directories to restrict to")
	indexGitHubCmd.Flags().StringVar(&githubPatterns, "pattern", "", "comma-separated glob patterns, e.g. *.md")
	indexGitHubCmd.Flags().StringVar(&githubToken, "token", "", "personal access token (default $GITHUB_TOKEN)")
	indexGitHubCmd.Flags().StringVar(&githubBaseURL, "base-url", "", "API URL for GitHub Enterprise")

	indexGDriveCmd.Flags().StringVar(&gdriveCredentials, "credentials", "",
		"service account key file (default $GOOGLE_APPLICATION_CREDENTIALS)")
	indexGDriveCmd.Flags().StringVar(&gdriveToken, "token", "", "OAuth access token")
	indexGDriveCmd.Flags().StringVar(&gdriveContentTypes, "content-types", "",
		"comma-separated content types: files, docs, sheets (default all)")
	indexGDriveCmd.Flags().BoolVar(&gdriveNoRecursive, "no-recursive", false, "do not descend into subfolders")

	indexCmd.AddCommand(indexGitHubCmd)
	indexCmd.AddCommand(indexGDriveCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(removeCmd)
}

func runIndexPath(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}

	scope, err := parseIndexScope()
	if err != nil {
		return err
	}

	opts := []filesystem.Option{
		filesystem.WithMetadata(scope),
		filesystem.WithFilter(acceptFile),
	}
	if indexExts != "" {
		opts = append(opts, filesystem.WithExtensions(strings.Split(indexExts, ",")...))
	}
	if indexMaxSize > 0 {
		opts = append(opts, filesystem.WithMaxFileSize(indexMaxSize))
	}

	src := filesystem.New(args[0], opts...)
	defer src.Close() //nolint:errcheck // best-effort cleanup

	if err := ingest(cmd, src); err != nil {
		return err
	}
	if !indexWatch {
		return nil
	}

	cmd.Printf("Watching %s for changes (ctrl+c to stop)...\n", src.Root())
	err = ingestService.Watch(cmd.Context(), src, func(change domain.DocumentChange, err error) {
		if err != nil {
			cmd.PrintErrf("  %s %s: %v\n", change.Type, change.URI, err)
			return
		}
		cmd.Printf("  %s %s\n", change.Type, change.URI)
	})
	if err != nil && cmd.Context().Err() == nil {
		return fmt.Errorf("watch failed: %w", err)
	}
	return nil
}

func runIndexGitHub(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}

	owner, repo, err := github.ParseRepository(args[0])
	if err != nil {
		return err
	}
	scope, err := parseIndexScope()
	if err != nil {
		return err
	}

	token := githubToken
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}

	cfg := github.Config{
		Owner:        owner,
		Repo:         repo,
		Branch:       githubBranch,
		Paths:        github.ParsePatterns(githubPaths),
		FilePatterns: github.ParsePatterns(githubPatterns),
		Token:        token,
		BaseURL:      githubBaseURL,
	}

	src, err := github.New(cmd.Context(), cfg, acceptFile)
	if err != nil {
		return fmt.Errorf("github source: %w", err)
	}
	return ingest(cmd, connectors.WithMetadata(src, scope))
}

func runIndexGDrive(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}

	scope, err := parseIndexScope()
	if err != nil {
		return err
	}

	cfg := drive.DefaultConfig(drive.ParseFolderIDs(args[0])...)
	cfg.Recursive = !gdriveNoRecursive
	if gdriveContentTypes != "" {
		cfg.ContentTypes = drive.ParseContentTypes(gdriveContentTypes)
	}

	cfg.Credentials = google.Credentials{Token: gdriveToken, CredentialsFile: gdriveCredentials}
	if cfg.Credentials.Token == "" && cfg.Credentials.CredentialsFile == "" {
		cfg.Credentials.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}

	src, err := drive.New(cmd.Context(), cfg, acceptFile)
	if err != nil {
		return fmt.Errorf("google drive source: %w", err)
	}
	return ingest(cmd, connectors.WithMetadata(src, scope))
}

// ingest validates a source, indexes it and prints a summary.
func ingest(cmd *cobra.Command, src driven.DocumentSource) error {
	ctx := cmd.Context()

	if err := src.Validate(ctx); err != nil {
		return fmt.Errorf("source %s: %w", src.Name(), err)
	}

	cmd.Printf("Indexing %s...\n", src.Name())

	var skipped int
	results, err := ingestService.IngestSource(ctx, src, func(err error) {
		skipped++
		cmd.PrintErrf("  skipped: %v\n", err)
	})

	fragments := 0
	for _, r := range results {
		fragments += r.Fragments
		cmd.Printf("  %s (%d fragments, id %d)\n", r.Filename, r.Fragments, r.DocumentID)
	}
	cmd.Printf("Indexed %d documents (%d fragments)", len(results), fragments)
	if skipped > 0 {
		cmd.Printf(", skipped %d", skipped)
	}
	cmd.Println()

	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}

	for _, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid document id %q: %w", arg, domain.ErrInvalidInput)
		}
		if err := ingestService.DeleteDocument(cmd.Context(), id); err != nil {
			return fmt.Errorf("remove %d: %w", id, err)
		}
		cmd.Printf("Removed document %d\n", id)
	}
	return nil
}

func parseIndexScope() (map[string]string, error) {
	scope, err := domain.ParseScope(indexScope)
	if err != nil {
		return nil, fmt.Errorf("--scope must be key=value: %w", err)
	}
	return scope, nil
}
