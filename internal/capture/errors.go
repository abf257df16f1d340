package capture

import "fmt"

// Kind is the §7 error taxonomy. The capture paths attach KindCapture, as a
// string, to a Record's failure marker so it can be inspected without string
// matching on the message.
type Kind string

const (
	KindCapture        Kind = "CaptureError"
	KindDecode         Kind = "DecodeError"
	KindIPC            Kind = "IpcError"
	KindSupervisor     Kind = "SupervisorError"
	KindBrowserLaunch  Kind = "BrowserLaunchError"
)

// Error wraps an underlying error with a §7 kind. Fetch returns one to its
// caller only when the request cannot be built at all. Failures after that
// point are attached to the Record via Record.MarkFailure/MarkAborted, and a
// transport error is returned to the caller unwrapped. The capture paths do
// not log these failures.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds a *Error.
func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
