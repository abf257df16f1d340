// Command netdebugd is the debugger process: the Process Supervisor (C8)
// forks one of these per debugger port. It accepts host IPC connections
// (C7), projects their Records onto CDP frames (C10), serves them to a
// DevTools front-end over a WebSocket (C9), and — unless devMode is set —
// launches a browser pointed at the inspector page.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/netwatch-dev/netdebug/internal/browser"
	"github.com/netwatch-dev/netdebug/internal/config"
	"github.com/netwatch-dev/netdebug/internal/devtools"
	"github.com/netwatch-dev/netdebug/internal/ipc"
	"github.com/netwatch-dev/netdebug/internal/logging"
	"github.com/netwatch-dev/netdebug/internal/record"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("netdebugd: config: %v", err)
	}

	logger := logging.NewStdoutLogger("netdebugd")

	dtServer := devtools.NewServer(devtools.Config{
		TabURL: cfg.InspectorURL(),
		Log:    logger.With(logging.Field{Key: "component", Value: "devtools"}),
	})

	wsHTTPServer := &http.Server{
		Addr:    addr(cfg.Port),
		Handler: dtServer,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("devtools server listening", logging.Field{Key: "port", Value: cfg.Port})
		if err := wsHTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("devtools server error", logging.Field{Key: "error", Value: err.Error()})
		}
	}()

	var launcher *browser.Launcher
	if !cfg.DevMode {
		launcher = browser.New(cfg.RemoteDebuggerPort, logger.With(logging.Field{Key: "component", Value: "browser"}))
		go func() {
			if err := launcher.Launch(ctx, cfg.InspectorURL()); err != nil {
				logger.Warn("browser launch failed", logging.Field{Key: "error", Value: err.Error()})
			}
		}()
	} else {
		logger.Info("devMode set, suppressing automatic browser launch")
	}

	listener, err := net.Listen("tcp", addr(cfg.ServerPort))
	if err != nil {
		log.Fatalf("netdebugd: listen ipc: %v", err)
	}
	logger.Info("ipc listener ready", logging.Field{Key: "port", Value: cfg.ServerPort})

	go acceptLoop(ctx, listener, dtServer, logger)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsHTTPServer.Shutdown(shutdownCtx)
	listener.Close()
	if launcher != nil {
		launcher.Close()
	}
}

func addr(port int) string {
	return fmt.Sprintf("127.0.0.1:%d", port)
}

func acceptLoop(ctx context.Context, listener net.Listener, dtServer *devtools.Server, logger logging.Logger) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				logger.Warn("ipc accept error", logging.Field{Key: "error", Value: err.Error()})
				return
			}
		}
		go handleIPCConn(conn, dtServer, logger)
	}
}

func handleIPCConn(conn net.Conn, dtServer *devtools.Server, logger logging.Logger) {
	defer conn.Close()

	c := ipc.NewConn(conn, logger.With(logging.Field{Key: "component", Value: "ipc"}))
	err := c.Serve(func(msg ipc.Message) {
		if msg.Type != ipc.TypeRequestEnd || msg.Record == nil {
			return
		}
		rec := record.FromWire(*msg.Record)
		dtServer.Publish(rec)
	})
	if err != nil {
		logger.Warn("ipc connection ended with error", logging.Field{Key: "error", Value: err.Error()})
	}
}
