// Package browser implements the browser-launcher collaborator the
// DevTools Server (C9) uses to drive a real Chromium instance: querying its
// remote-debugging /json endpoint, launching it when necessary, and
// sending it Page.navigate/Page.close over its own CDP WebSocket. Chromium
// itself stays an opaque binary; this package implements none of its
// internals.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/gorilla/websocket"

	"github.com/netwatch-dev/netdebug/internal/logging"
)

// ProbeTimeout is the total time allowed for the post-launch /json polling
// loop, per §5 "Timeouts: Browser-launch probe: 30s total".
const ProbeTimeout = 30 * time.Second

const pollInterval = 500 * time.Millisecond

// tabInfo mirrors one entry of the /json endpoint's response (§6 "Inbound
// from browser /json").
type tabInfo struct {
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	URL                  string `json:"url"`
	ID                   string `json:"id"`
}

// Launcher drives a Chromium instance to display the DevTools front-end.
type Launcher struct {
	RemoteDebuggerPort int
	Log                logging.Logger

	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
}

// New builds a Launcher targeting the given remote-debugging port.
func New(remoteDebuggerPort int, log logging.Logger) *Launcher {
	if log == nil {
		log = logging.NewStdoutLogger("browser")
	}
	return &Launcher{RemoteDebuggerPort: remoteDebuggerPort, Log: log}
}

func (l *Launcher) jsonEndpoint() string {
	return fmt.Sprintf("http://127.0.0.1:%d/json", l.RemoteDebuggerPort)
}

// Launch implements §4.9's browser launch sequence for targetURL (the
// devtools://... inspector URL).
func (l *Launcher) Launch(ctx context.Context, targetURL string) error {
	if existing, ok := l.findTab(targetURL); ok {
		l.Log.Info("closing stale inspector tab", logging.Field{Key: "url", Value: existing.URL})
		if err := l.sendCDPCommand(existing.WebSocketDebuggerURL, "Page.close", nil); err != nil {
			l.Log.Warn("failed to close stale tab", logging.Field{Key: "error", Value: err.Error()})
		}
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if runtime.GOOS != "darwin" {
		opts = append(opts, chromedp.Flag("remote-debugging-port", fmt.Sprintf("%d", l.RemoteDebuggerPort)))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	l.allocCancel = allocCancel

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	l.ctxCancel = browserCancel

	if err := chromedp.Run(browserCtx); err != nil {
		allocCancel()
		return fmt.Errorf("browser: launch: %w", err)
	}

	if runtime.GOOS == "darwin" {
		// The Darwin launcher handles remote-debugging-port transparently;
		// chromedp already has a live target, so just navigate it.
		return chromedp.Run(browserCtx, chromedp.Navigate(targetURL))
	}

	tab, err := l.pollForTab(ctx)
	if err != nil {
		return err
	}
	return l.sendCDPCommand(tab.WebSocketDebuggerURL, "Page.navigate", map[string]any{"url": targetURL})
}

// Close terminates the launched browser, if owned.
func (l *Launcher) Close() {
	if l.ctxCancel != nil {
		l.ctxCancel()
	}
	if l.allocCancel != nil {
		l.allocCancel()
	}
}

func (l *Launcher) findTab(targetURL string) (tabInfo, bool) {
	tabs, err := l.listTabs()
	if err != nil {
		return tabInfo{}, false
	}
	for _, t := range tabs {
		if t.URL == targetURL {
			return t, true
		}
	}
	return tabInfo{}, false
}

func (l *Launcher) listTabs() ([]tabInfo, error) {
	resp, err := http.Get(l.jsonEndpoint())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var tabs []tabInfo
	if err := json.NewDecoder(resp.Body).Decode(&tabs); err != nil {
		return nil, err
	}
	return tabs, nil
}

// pollForTab polls /json every 500ms until it responds with at least one
// tab, bounded by ProbeTimeout, per §4.9 step 4.
func (l *Launcher) pollForTab(ctx context.Context) (tabInfo, error) {
	deadline := time.Now().Add(ProbeTimeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		tabs, err := l.listTabs()
		if err == nil && len(tabs) > 0 {
			return tabs[0], nil
		}

		if time.Now().After(deadline) {
			return tabInfo{}, fmt.Errorf("browser: timed out waiting for /json endpoint after %s", ProbeTimeout)
		}

		select {
		case <-ctx.Done():
			return tabInfo{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// sendCDPCommand dials a tab's CDP WebSocket and sends one fire-and-forget
// command, used for the Page.close/Page.navigate steps of §4.9.
func (l *Launcher) sendCDPCommand(wsURL, method string, params map[string]any) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("browser: dial %s: %w", method, err)
	}
	defer conn.Close()

	msg := map[string]any{"id": 1, "method": method}
	if params != nil {
		msg["params"] = params
	}
	return conn.WriteJSON(msg)
}
