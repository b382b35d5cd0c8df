package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ganot/openproject-mcp/internal/config"
	"github.com/ganot/openproject-mcp/internal/mcp"
	"github.com/ganot/openproject-mcp/internal/openproject"
)

// Set via ldflags at build time
var version = "dev"

type serveFlags struct {
	transport string
	host      string
	port      int
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var flags serveFlags

	root := &cobra.Command{
		Use:           "openproject-mcp",
		Short:         "MCP server for the OpenProject API v3",
		Long:          "Exposes OpenProject projects, work packages, time entries, boards and memberships as MCP tools.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	addServeFlags(root, &flags)

	root.AddCommand(serveCmd(), checkCmd())
	return root
}

func serveCmd() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	addServeFlags(cmd, &flags)
	return cmd
}

func addServeFlags(cmd *cobra.Command, flags *serveFlags) {
	cmd.Flags().StringVar(&flags.transport, "transport", "", "Transport mode: stdio or http (overrides MCP_TRANSPORT)")
	cmd.Flags().StringVar(&flags.host, "host", "", "HTTP listen host (overrides MCP_SERVER_HOST)")
	cmd.Flags().IntVar(&flags.port, "port", 0, "HTTP listen port (overrides MCP_SERVER_PORT)")
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Test the OpenProject connection and print API info",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, serveFlags{})
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: parseLogLevel(cfg.Log.Level),
			}))
			client, err := newClient(cfg, logger)
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), client, cmd.OutOrStdout())
		},
	}
}

func runCheck(ctx context.Context, client *openproject.Client, out io.Writer) error {
	if err := client.TestConnection(ctx); err != nil {
		return err
	}
	info, err := client.GetAPIInfo(ctx)
	if err != nil {
		return err
	}

	var pretty map[string]any
	if err := json.Unmarshal(info, &pretty); err != nil {
		return fmt.Errorf("decode API info: %w", err)
	}
	fmt.Fprintln(out, "Connection to OpenProject API successful!")
	for _, key := range []string{"instanceName", "coreVersion"} {
		if value, ok := pretty[key]; ok {
			fmt.Fprintf(out, "%s: %v\n", key, value)
		}
	}
	return nil
}

// loadConfig applies command-line flags on top of the file and environment.
func loadConfig(cmd *cobra.Command, flags serveFlags) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("transport") {
		cfg.Transport.Mode = flags.transport
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = flags.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = flags.port
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config error: %w", err)
	}
	return cfg, nil
}

func newClient(cfg config.Config, logger *slog.Logger) (*openproject.Client, error) {
	return openproject.NewClient(openproject.Config{
		BaseURL:            cfg.OpenProject.BaseURL,
		APIKey:             cfg.OpenProject.APIKey,
		Username:           cfg.OpenProject.Username,
		Password:           cfg.OpenProject.Password,
		InsecureSkipVerify: cfg.OpenProject.TLSInsecure,
		Timeout:            cfg.OpenProject.Timeout,
		Logger:             logger,
	})
}

func runServe(cmd *cobra.Command, flags serveFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == config.TransportStdio {
		logWriter = os.Stderr
	}
	if cfg.Log.File != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	client, err := newClient(cfg, logger)
	if err != nil {
		logger.Error("failed to create OpenProject client", "error", err)
		return err
	}
	if err := client.TestConnection(cmd.Context()); err != nil {
		logger.Error("OpenProject connection test failed", "base_url", cfg.OpenProject.BaseURL, "error", err)
		return err
	}
	logger.Info("connected to OpenProject", "base_url", cfg.OpenProject.BaseURL)

	mcpServer := mcp.NewServer(mcp.Config{
		Services:      mcp.ServicesFromClient(client),
		Name:          cfg.Server.Name,
		Version:       cfg.Server.Version,
		TransportMode: cfg.Transport.Mode,
		Logger:        logger,
		ErrorHints:    cfg.ErrorHints,
	})

	if cfg.Transport.Mode == config.TransportStdio {
		return runStdioMode(logger, mcpServer)
	}
	return runHTTPMode(logger, mcpServer, cfg.Server)
}
