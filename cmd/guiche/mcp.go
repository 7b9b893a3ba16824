package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the dialogue as MCP tools",
	Long:  `Starts a Model Context Protocol server with the start_session, send_message and reset_session tools. Uses stdio unless --sse is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		server := app.MCPServer()
		addr, _ := cmd.Flags().GetString("sse")
		if addr == "" {
			return server.ServeStdio()
		}

		baseURL, _ := cmd.Flags().GetString("base-url")
		if baseURL == "" {
			baseURL = "http://localhost" + addr
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.ServeSSE(ctx, addr, baseURL)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("sse", "", "Serve over SSE on this address (e.g. :8081) instead of stdio")
	mcpCmd.Flags().String("base-url", "", "Public base URL for SSE clients")
}
