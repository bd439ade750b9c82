package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/complyqa/internal/adapters/driving/api"
	"github.com/custodia-labs/complyqa/internal/adapters/driving/mcp"
)

var (
	serveAddr  string
	serveCORS  string
	serveNoMCP bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Serves the question answering pipeline over HTTP.

Routes:
  POST /api/v1/chat/query         answer a question (JSON)
  POST /api/v1/chat/query/stream  answer a question (server-sent events)
  GET  /api/v1/health             backend health
  /mcp                            MCP over streamable HTTP (unless --no-mcp)

Prompt files are reloaded when they change.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveCORS, "cors", "", "comma-separated allowed origins (* for any)")
	serveCmd.Flags().BoolVar(&serveNoMCP, "no-mcp", false, "do not mount the MCP endpoint")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if answerService == nil {
		return notConfigured("answer")
	}

	opts := api.Options{AllowedOrigins: splitList(serveCORS)}
	if !serveNoMCP {
		mcpServer, err := mcp.NewServer(&mcp.Ports{Answer: answerService, Health: healthService})
		if err != nil {
			return err
		}
		opts.MCPHandler = mcpServer.Handler()
	}

	server, err := api.NewServer(api.Ports{Answer: answerService, Health: healthService}, opts)
	if err != nil {
		return err
	}

	startPromptWatcher(cmd.Context())

	cmd.Printf("complyqa API listening on %s\n", displayAddr(serveAddr))
	if err := server.Run(cmd.Context(), serveAddr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
