package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tvergho/dex/internal/mcptools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the stdio MCP server",
	Long: `mcp starts dex's Model Context Protocol server on stdio, exposing the
stats, list, search, and get tools to a connecting MCP client (e.g. an
editor's AI assistant). Blocks until the client disconnects or the
process receives SIGINT/SIGTERM.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	server, err := mcptools.New(mcptools.Config{
		ServerName:    a.cfg.MCP.ServerName,
		ServerVersion: a.cfg.MCP.ServerVersion,
	}, a.repos, a.search, a.formatter, a.logger)
	if err != nil {
		return fmt.Errorf("build MCP server: %w", err)
	}

	// stdout is reserved for the MCP JSON-RPC protocol; status goes to stderr.
	fmt.Fprintln(os.Stderr, "dex: starting MCP server on stdio")
	return server.Run(ctx)
}
