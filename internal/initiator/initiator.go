// Package initiator captures and trims the Go call stack at the moment an
// HTTP call is intercepted (C1), producing CDP call frames suitable for a
// Request Record's initiator field. Resolution heuristics are intentionally
// shallow: runtime.Callers plus runtime.CallersFrames, skipping the
// interceptor's own plumbing, the way spec.md §4.1 leaves the exact
// heuristics to the implementer.
package initiator

import (
	"runtime"
	"strings"

	cdpruntime "github.com/chromedp/cdproto/runtime"
)

// maxFrames bounds how deep a captured stack goes; CDP front-ends render a
// handful of frames at most and unbounded capture is wasted work on a hot
// path.
const maxFrames = 32

// Resolver captures the current goroutine's call stack into CDP call
// frames. The zero value is ready to use.
type Resolver struct {
	// skipPackages lists package import paths whose frames are trimmed from
	// the top of the capture: the resolver's own Capture method and the
	// capture-layer "pipe" step that calls it.
	skipPackages []string
}

// New returns a Resolver that excludes frames belonging to skipPackages (in
// addition to this package itself) from the captured stack.
func New(skipPackages ...string) *Resolver {
	return &Resolver{skipPackages: skipPackages}
}

// Capture walks the current call stack and returns it as CDP call frames,
// outermost-caller first. It excludes frames in this package, in
// internal/record (whose New calls Capture), in internal/capture, and in any
// package passed to New, so the last (innermost) frame returned is the first
// one outside that capture plumbing.
func (r *Resolver) Capture() []*cdpruntime.CallFrame {
	pcs := make([]uintptr, maxFrames+8)
	// Skip runtime.Callers itself and this Capture frame.
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	var collected []*cdpruntime.CallFrame
	for {
		f, more := frames.Next()
		if !r.shouldSkip(f.Function) {
			collected = append(collected, toCallFrame(f))
			if len(collected) >= maxFrames {
				break
			}
		}
		if !more {
			break
		}
	}

	// runtime.CallersFrames yields innermost-caller first; CDP wants
	// outermost-caller first.
	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}
	return collected
}

func (r *Resolver) shouldSkip(function string) bool {
	if strings.Contains(function, "/internal/initiator.") {
		return true
	}
	if strings.Contains(function, "/internal/record.") {
		return true
	}
	if strings.Contains(function, "/internal/capture.") {
		return true
	}
	for _, pkg := range r.skipPackages {
		if strings.Contains(function, pkg) {
			return true
		}
	}
	return false
}

// toCallFrame converts a runtime.Frame into a CDP call frame. A File
// beginning with "/" is rewritten to a file:// URL per spec §3; an empty
// File stays empty rather than becoming "file://".
func toCallFrame(f runtime.Frame) *cdpruntime.CallFrame {
	url := f.File
	if strings.HasPrefix(url, "/") {
		url = "file://" + url
	}

	line := f.Line - 1
	if line < 0 {
		line = 0
	}

	return &cdpruntime.CallFrame{
		FunctionName: functionLabel(f.Function),
		URL:          url,
		LineNumber:   int64(line),
		ColumnNumber: 0,
	}
}

// functionLabel trims a fully qualified Go function name down to the last
// path segment, the closest Go analogue of a JS function name (CDP expects
// a bare identifier, not an import path).
func functionLabel(fn string) string {
	if fn == "" {
		return ""
	}
	if idx := strings.LastIndex(fn, "/"); idx != -1 {
		fn = fn[idx+1:]
	}
	if idx := strings.Index(fn, "."); idx != -1 {
		fn = fn[idx+1:]
	}
	return fn
}
