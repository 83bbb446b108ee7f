package docker

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/docker/docker/client"

	"github.com/saaskit/signupcheck/internal/model"
)

// pingTimeout bounds one daemon health probe.
const pingTimeout = 5 * time.Second

// Client is a connection to the Docker daemon that hosts tenant
// containers.
type Client struct {
	api *client.Client
}

// NewClient connects to the daemon at host.
//
// An empty host defers to the DOCKER_* environment (DOCKER_HOST,
// DOCKER_API_VERSION, DOCKER_CERT_PATH, DOCKER_TLS_VERIFY). Without
// DOCKER_HOST the platform's usual sockets are tried in order; see
// socketCandidates.
//
// Failures are reported as a model.CLIError with ExitDockerNotRunning.
func NewClient(host string) (*Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}

	switch {
	case host != "":
		opts = append(opts, client.WithHost(host))
	case os.Getenv(client.EnvOverrideHost) == "":
		found, err := findDaemon(runtime.GOOS)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitDockerNotRunning, "Docker socket not found", err)
		}
		opts = append(opts, client.WithHost(found))
	}

	api, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerNotRunning, "failed to create Docker client", err)
	}
	return &Client{api: api}, nil
}

// Host returns the daemon address the client talks to.
func (c *Client) Host() string {
	return c.api.DaemonHost()
}

// Ping checks that the daemon answers within pingTimeout.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if _, err := c.api.Ping(ctx); err != nil {
		return model.WrapCLIError(model.ExitDockerNotRunning,
			fmt.Sprintf("Docker daemon at %s is not responding", c.Host()), err)
	}
	return nil
}

// Close releases the underlying HTTP transport.
func (c *Client) Close() error {
	if c.api == nil {
		return nil
	}
	return c.api.Close()
}

// findDaemon returns the daemon address for goos. Unix sockets are checked
// for existence only; Ping tells whether anything listens.
func findDaemon(goos string) (string, error) {
	if goos == "windows" {
		const pipe = `//./pipe/docker_engine`
		conn, err := net.DialTimeout("pipe", pipe, time.Second)
		if err != nil {
			return "", fmt.Errorf("named pipe %s: %w", pipe, err)
		}
		_ = conn.Close()
		return "npipe://" + pipe, nil
	}

	paths := socketCandidates(goos, os.Getenv("XDG_RUNTIME_DIR"), userHome())
	if len(paths) == 0 {
		return "", fmt.Errorf("unsupported platform: %s", goos)
	}
	return firstSocket(paths)
}

// socketCandidates lists the Unix sockets a daemon commonly listens on,
// rootful first. Rootless Docker uses $XDG_RUNTIME_DIR/docker.sock; Docker
// Desktop and Colima keep theirs under the home directory.
func socketCandidates(goos, runtimeDir, home string) []string {
	var paths []string
	switch goos {
	case "linux":
		paths = append(paths, "/var/run/docker.sock")
		if runtimeDir != "" {
			paths = append(paths, filepath.Join(runtimeDir, "docker.sock"))
		}
		if home != "" {
			paths = append(paths, filepath.Join(home, ".docker", "desktop", "docker.sock"))
		}
	case "darwin":
		paths = append(paths, "/var/run/docker.sock")
		if home != "" {
			paths = append(paths,
				filepath.Join(home, ".docker", "run", "docker.sock"),
				filepath.Join(home, ".colima", "default", "docker.sock"),
			)
		}
	}
	return paths
}

func firstSocket(paths []string) (string, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return "unix://" + p, nil
		}
	}
	return "", fmt.Errorf("no Docker socket at any of %v (is Docker running?)", paths)
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}
