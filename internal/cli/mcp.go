package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	hazardmcp "github.com/ppiankov/hazardwatch/internal/mcp"
	"github.com/ppiankov/hazardwatch/internal/policy"
)

var (
	mcpAuditLog string
	mcpNoReload bool
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpAuditLog, "audit-log", "", "Append every assessment to a hash-chained JSONL audit log")
	mcpCmd.Flags().BoolVar(&mcpNoReload, "no-reload", false, "Do not reload the config file when it changes")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs hazardwatch as an MCP (Model Context Protocol) server over stdio.\nExposes tools: hazard_assess, hazard_classify, hazard_schema.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	srv, err := hazardmcp.New(hazardmcp.Config{
		ConfigPath:   configPath,
		AuditLogPath: mcpAuditLog,
		Version:      version,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	sigCtx, cancel := signalContext()
	defer cancel()
	ctx, stop := context.WithCancel(sigCtx)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	fmt.Fprintln(os.Stderr, "hazardwatch MCP server running on stdio")
	if !mcpNoReload {
		reloader, err := policy.NewReloader(srv.Live(), logger, srv.Live().Path())
		if err != nil {
			return err
		}
		if reloader.Watching() {
			fmt.Fprintf(os.Stderr, "Watching %s for changes\n", srv.Live().Path())
		}
		g.Go(func() error { return reloader.Run(gctx) })
	}
	fmt.Fprintln(os.Stderr)

	g.Go(func() error {
		defer stop()
		return srv.Run(gctx)
	})

	err = g.Wait()
	fmt.Fprintln(os.Stderr, "\nMCP server stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
