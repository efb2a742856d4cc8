package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"chatarchive/internal/core"
	"chatarchive/internal/features/archive/services"
	"chatarchive/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Preview the published site over HTTP.",
	Long: `Serve publish_dir over HTTP. GET /api/build reports the last build and
POST /api/build runs a new one. With --watch the site is rebuilt whenever the
archive database changes.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address host:port (default from config)")
	serveCmd.Flags().Bool("watch", false, "Rebuild incrementally when the archive database changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	watch, _ := cmd.Flags().GetBool("watch")

	var addrErr error
	a, err := setup(cmd, func(c *core.Config) {
		if watch {
			c.Build.IncrementalBuilds = true
		}
		addrErr = applyAddr(c, addr)
	})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer a.close(context.Background())

	if addrErr != nil {
		return addrErr
	}

	if err := a.init(ctx); err != nil {
		return err
	}
	if watch {
		if _, err := a.archive.Watch(ctx, services.DefaultDebounce); err != nil {
			return err
		}
	}

	srv := server.New(a.config, a.logger, a.registry)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// applyAddr overrides the configured listen address with a host:port
// value. An empty addr keeps the config.
func applyAddr(c *core.Config, addr string) error {
	if addr == "" {
		return nil
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return core.NewConfigurationError("invalid --addr", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return core.NewConfigurationError(fmt.Sprintf("invalid --addr port %q", portStr), err)
	}
	c.Server.Host = host
	c.Server.Port = port
	return nil
}
