// serve.go implements the "signupcheck serve" command.
//
// serve exposes the availability service over HTTP using the JSON-RPC
// envelope the signup form posts. It runs until SIGINT or SIGTERM and then
// drains in-flight requests before exiting.

package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/saaskit/signupcheck/internal/model"
	"github.com/saaskit/signupcheck/internal/server"
)

// dockerPingInterval is how often serve re-checks the Docker daemon.
const dockerPingInterval = 30 * time.Second

// serveFlags holds the flag values for the serve command.
type serveFlags struct {
	addr string
}

// NewServeCommand creates the "serve" command.
func NewServeCommand() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve availability checks over HTTP",
		Long: `Start the HTTP check server.

Routes:
  POST /saas/check-port        {"params":{"port":"8082"}}
  POST /saas/check-subdomain   {"params":{"subdomain":"acme"}}
  POST /saas/allocate-port     {"params":{}}
  GET  /saas/plans
  GET  /healthz
  GET  /metrics

Examples:
  signupcheck serve
  signupcheck serve --addr 127.0.0.1:9000 --config signupcheck.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", "", "Listen address (default: server.addr)")

	return cmd
}

func runServe(ctx context.Context, flags *serveFlags) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	if flags.addr != "" {
		rt.cfg.Server.Addr = flags.addr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := rt.service(ctx)
	defer cleanup()
	if err != nil {
		return err
	}

	srv := server.New(svc, rt.cfg.Server,
		server.WithLogger(rt.logger),
		server.WithPlans(rt.cfg.Plans),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	if rt.docker != nil {
		g.Go(func() error {
			rt.monitorDocker(gctx, dockerPingInterval)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "check server failed", err)
	}
	return nil
}

// monitorDocker pings the daemon every interval until ctx is done. Checks
// keep failing while the daemon is down, so the transitions are logged.
func (rt *runtime) monitorDocker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := rt.docker.Ping(ctx)
		switch {
		case err != nil && healthy:
			rt.logger.WarnContext(ctx, "Docker daemon unreachable", slog.Any("error", err))
		case err == nil && !healthy:
			rt.logger.InfoContext(ctx, "Docker daemon reachable again")
		}
		healthy = err == nil
	}
}
