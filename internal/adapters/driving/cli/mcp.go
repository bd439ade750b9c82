package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/complyqa/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can ask
compliance questions and search indexed fragments.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead, for the MCP Inspector
or remote access.

Examples:
  # Stdio mode (default, for desktop assistants)
  complyqa mcp serve

  # HTTP mode
  complyqa mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "complyqa": {
        "command": "/path/to/complyqa",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	if answerService == nil {
		return notConfigured("answer")
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Answer: answerService,
		Health: healthService,
	})
	if err != nil {
		return err
	}

	startPromptWatcher(cmd.Context())

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
