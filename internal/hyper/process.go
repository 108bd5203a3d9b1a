// Package hyper opens Tableau extract (.hyper) files through the Hyper
// database server.
//
// hyperd speaks the PostgreSQL wire protocol, so sessions are plain pgx
// connections whose database is the extract file. The engine either
// connects to a server that is already running or launches a private
// hyperd process per session and stops it when the session closes.
package hyper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultBinary       = "hyperd"
	DefaultUser         = "tableau_internal_user"
	DefaultStartTimeout = 30 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// Config controls how the engine reaches a Hyper server.
type Config struct {
	// BinaryPath is the hyperd executable launched per session.
	BinaryPath string

	// Endpoint is host:port of an already running server. When set, no
	// process is launched.
	Endpoint string

	// User is the database user; hyperd is started with it as init user.
	User string

	// LogDir receives hyperd logs. Empty uses the system temp dir.
	LogDir string

	StartTimeout time.Duration
	StopTimeout  time.Duration

	// ExtraArgs are appended to the hyperd command line.
	ExtraArgs []string
}

func (c Config) withDefaults() Config {
	if c.BinaryPath == "" {
		c.BinaryPath = DefaultBinary
	}
	if c.User == "" {
		c.User = DefaultUser
	}
	if c.LogDir == "" {
		c.LogDir = os.TempDir()
	}
	if c.StartTimeout <= 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	return c
}

// args builds the hyperd command line for a server listening on port.
func (c Config) args(port int) []string {
	args := []string{
		"run",
		"--skip-license",
		"--no-password",
		"--init-user=" + c.User,
		"--listen-connection=tab.tcp://127.0.0.1:" + strconv.Itoa(port),
		"--log-dir=" + c.LogDir,
	}
	return append(args, c.ExtraArgs...)
}

// process is a hyperd server owned by one session.
type process struct {
	cmd         *exec.Cmd
	addr        string
	exited      chan error
	stopTimeout time.Duration
}

func startProcess(cfg Config) (*process, error) {
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("reserve port: %w", err)
	}

	cmd := exec.Command(cfg.BinaryPath, cfg.args(port)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.BinaryPath, err)
	}

	p := &process{
		cmd:         cmd,
		addr:        net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
		exited:      make(chan error, 1),
		stopTimeout: cfg.StopTimeout,
	}
	go func() { p.exited <- cmd.Wait() }()

	slog.Debug("hyperd started", "pid", cmd.Process.Pid, "addr", p.addr)
	return p, nil
}

// alive reports an error if the process has already exited.
func (p *process) alive() error {
	select {
	case err := <-p.exited:
		p.exited <- err
		if err == nil {
			err = errors.New("exited")
		}
		return fmt.Errorf("hyperd stopped early: %w", err)
	default:
		return nil
	}
}

// stop asks hyperd to shut down and kills it after the stop timeout.
func (p *process) stop() error {
	if err := p.alive(); err != nil {
		return nil
	}
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		return p.kill()
	}

	select {
	case <-p.exited:
		slog.Debug("hyperd stopped", "pid", p.cmd.Process.Pid)
		return nil
	case <-time.After(p.stopTimeout):
		return p.kill()
	}
}

func (p *process) kill() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill hyperd: %w", err)
	}
	<-p.exited
	slog.Warn("hyperd killed after stop timeout", "pid", p.cmd.Process.Pid)
	return nil
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// waitReady retries connect until it succeeds, the process exits or ctx ends.
func waitReady[T any](ctx context.Context, p *process, connect func(context.Context) (T, error)) (T, error) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var zero T
	var lastErr error
	for {
		v, err := connect(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if perr := p.alive(); perr != nil {
			return zero, perr
		}

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("hyperd not ready: %w (last error: %v)", ctx.Err(), lastErr)
		case <-ticker.C:
		}
	}
}
