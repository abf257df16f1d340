// Command netdebug-demo runs a small HTTP server and exercises it through
// both capture paths: one request via an *http.Client wrapped with
// netdebug.Wrap (C4), one via netdebug.Fetch (C5). It connects to a
// running netdebugd (or spawns one via the supervisor) and streams the
// resulting Records over IPC, demonstrating the whole pipeline end to end.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/netwatch-dev/netdebug"
	"github.com/netwatch-dev/netdebug/internal/config"
	"github.com/netwatch-dev/netdebug/internal/ipc"
	"github.com/netwatch-dev/netdebug/internal/logging"
	"github.com/netwatch-dev/netdebug/internal/supervisor"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("netdebug-demo: config: %v", err)
	}

	logger := logging.NewStdoutLogger("netdebug-demo")

	demoAddr, closeDemo := startDemoServer(logger)
	defer closeDemo()

	sup, err := supervisor.New(supervisor.Config{
		LockPath: filepath.Join(os.TempDir(), "request-center.lock"),
		DBPath:   filepath.Join(os.TempDir(), "netdebug-supervisor.db"),
		Port:     cfg.Port,
		Log:      logger.With(logging.Field{Key: "component", Value: "supervisor"}),
	})
	if err != nil {
		log.Fatalf("netdebug-demo: supervisor: %v", err)
	}

	ctx := context.Background()
	role, err := sup.Acquire(ctx)
	if err != nil {
		log.Fatalf("netdebug-demo: acquire: %v", err)
	}
	if role == supervisor.RoleOwner {
		if err := spawnDebugger(os.Args); err != nil {
			log.Fatalf("netdebug-demo: spawn debugger: %v", err)
		}
		// Give the debugger a moment to bind its IPC listener.
		time.Sleep(300 * time.Millisecond)
		sup.Connected(ctx)
	}
	defer sup.Shutdown(ctx)

	conn, err := net.Dial("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.ServerPort))
	if err != nil {
		log.Fatalf("netdebug-demo: dial ipc: %v", err)
	}
	defer conn.Close()

	// Drain the "ready" frame the debugger sends on connect.
	if _, err := ipc.ReadMessage(conn); err != nil {
		log.Fatalf("netdebug-demo: awaiting ready: %v", err)
	}

	client := ipc.NewClient(conn, ipc.DefaultHighWaterMark, logger.With(logging.Field{Key: "component", Value: "ipc"}))
	defer client.Close()

	// Per §4.8, an IPC write failure moves the supervisor into reconnecting.
	// Nothing here redials, so records published after the failure are not
	// delivered.
	client.OnWriteError = func(err error) {
		sup.Reconnecting(ctx)
	}

	opts := netdebug.Options{Sink: client, Log: logger.With(logging.Field{Key: "component", Value: "capture"})}

	runDemoTraffic(demoAddr, opts, logger)

	logger.Info("demo traffic sent, inspect the connected DevTools front-end")
	time.Sleep(2 * time.Second)
}

func runDemoTraffic(demoAddr string, opts netdebug.Options, logger logging.Logger) {
	httpClient := netdebug.Client(&http.Client{Timeout: 10 * time.Second}, opts)
	resp, err := httpClient.Get("http://" + demoAddr + "/hello")
	if err != nil {
		logger.Warn("demo GET via http.Client failed", logging.Field{Key: "error", Value: err.Error()})
	} else {
		resp.Body.Close()
		logger.Info("demo GET via http.Client completed", logging.Field{Key: "status", Value: resp.StatusCode})
	}

	fetchResp, err := netdebug.Fetch(context.Background(), netdebug.FetchRequest{
		URL:    "http://" + demoAddr + "/echo",
		Method: http.MethodPost,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: []byte(`{"greeting":"hi"}`),
	}, opts)
	if err != nil {
		logger.Warn("demo POST via netdebug.Fetch failed", logging.Field{Key: "error", Value: err.Error()})
	} else {
		logger.Info("demo POST via netdebug.Fetch completed",
			logging.Field{Key: "status", Value: fetchResp.StatusCode},
			logging.Field{Key: "body", Value: string(fetchResp.Body)})
	}
}

// startDemoServer starts a throwaway HTTP server with two endpoints that
// exist purely to give the demo capture paths something to observe.
func startDemoServer(logger logging.Logger) (addr string, closeFn func()) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hello", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello from netdebug-demo"))
	})
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("netdebug-demo: start demo server: %v", err)
	}

	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Warn("demo server error", logging.Field{Key: "error", Value: err.Error()})
		}
	}()

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// spawnDebugger forks the netdebugd binary as a detached child, per §4.8
// ("fork the debugger executable as a detached child").
func spawnDebugger(args []string) error {
	self, err := os.Executable()
	if err != nil {
		return err
	}
	// Resolve netdebugd relative to this binary's directory, the way a
	// packaged install would lay out sibling binaries.
	bin := filepath.Join(filepath.Dir(self), "netdebugd")
	if _, err := os.Stat(bin); err != nil {
		bin = "netdebugd"
	}

	cmd := exec.Command(bin, args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Start()
}
