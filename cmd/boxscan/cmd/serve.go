package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/veridose/boxscan/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP scanning server",
	Long: `Start an HTTP server exposing scan, correction, statistics, and
index maintenance endpoints, plus a websocket for streaming scans.

Examples:
  boxscan serve
  boxscan serve --port 9090 --host 0.0.0.0
  boxscan serve --cors-origin "https://app.example.com"`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "host interface to bind")
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on")
	serveCmd.Flags().String("cors-origin", "", "allowed CORS origin")
	serveCmd.Flags().Int("max-upload-mb", 0, "maximum upload size in megabytes")
	serveCmd.Flags().Int("timeout", 0, "per-request scan timeout in seconds")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()

	srvCfg := server.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSOrigin:  cfg.Server.CORSOrigin,
		MaxUploadMB: int64(cfg.Server.MaxUploadMB),
		TimeoutSec:  cfg.Server.TimeoutSec,
	}

	// CLI flags override file and environment configuration.
	if cmd.Flags().Changed("host") {
		srvCfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		srvCfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("cors-origin") {
		srvCfg.CORSOrigin, _ = cmd.Flags().GetString("cors-origin")
	}
	if cmd.Flags().Changed("max-upload-mb") {
		mb, _ := cmd.Flags().GetInt("max-upload-mb")
		srvCfg.MaxUploadMB = int64(mb)
	}
	if cmd.Flags().Changed("timeout") {
		srvCfg.TimeoutSec, _ = cmd.Flags().GetInt("timeout")
	}

	stack, err := buildScanStack(cfg, "upload")
	if err != nil {
		return err
	}
	defer stack.Close()

	slog.Info("starting server", "host", srvCfg.Host, "port", srvCfg.Port)
	return server.Run(srvCfg, stack.pipeline, stack.visual)
}
