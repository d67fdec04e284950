package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/vango-go/vai-character/pkg/mcpbridge"
	"github.com/vango-go/vai-character/pkg/transcript"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the character session as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE:  runMCP,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// stdout carries the protocol.
	logger := setupLogger(cfg, cmd.ErrOrStderr())
	r, err := loadRoster(cfg)
	if err != nil {
		return err
	}
	client, err := newClient(cfg, logger, r)
	if err != nil {
		return err
	}
	store, err := openTranscript(ctx, cfg)
	if err != nil {
		return err
	}
	recorder := transcript.NewRecorder(store, client, transcript.WithLogger(logger))
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = client.Close(closeCtx)
		_ = recorder.Close(closeCtx)
		_ = store.Close(closeCtx)
	}()

	client.Reconnect()
	server := mcpbridge.NewServer(client, version,
		mcpbridge.WithTranscript(store),
		mcpbridge.WithRoster(r, cfg.Scene),
	)
	return server.Run(ctx, &sdk.StdioTransport{})
}
