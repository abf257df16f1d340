package cdp

import (
	"encoding/base64"
	"encoding/json"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/netwatch-dev/netdebug/internal/record"
)

// initialPriority and mixedContentType are the literal values §9's open
// question leaves as configurable-but-defaulted.
const (
	defaultInitialPriority  = "High"
	defaultMixedContentType = "none"
)

// Projector turns completed Records into ordered CDP frames. frameId and
// loaderId are stable for the Projector's lifetime, per §4.10.
type Projector struct {
	frameID  string
	loaderID string

	initialPriority  string
	mixedContentType string

	start time.Time

	mu   sync.Mutex
	last float64
}

// NewProjector builds a Projector with stable frame/loader ids.
func NewProjector(frameID, loaderID string) *Projector {
	return &Projector{
		frameID:          frameID,
		loaderID:         loaderID,
		initialPriority:  defaultInitialPriority,
		mixedContentType: defaultMixedContentType,
		start:            time.Now(),
	}
}

// nextTimestamp returns seconds since the Projector started, clamped to be
// monotonically non-decreasing across calls, per §5 ordering (iii).
func (p *Projector) nextTimestamp() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := time.Since(p.start).Seconds()
	if t < p.last {
		t = p.last
	}
	p.last = t
	return t
}

// Project converts r into the four frames of §4.10, in order.
func (p *Projector) Project(r *record.Record) []Frame {
	requestID := r.ID

	frames := make([]Frame, 0, 4)
	frames = append(frames, p.projectRequestWillBeSent(r, requestID))
	frames = append(frames, p.projectResponseReceived(r, requestID))
	frames = append(frames, p.projectDataReceived(r, requestID))
	frames = append(frames, p.projectLoadingFinished(r, requestID))
	return frames
}

func (p *Projector) projectRequestWillBeSent(r *record.Record, requestID string) Frame {
	var postData string
	if !r.Body.IsEmpty() {
		postData = serializeBody(r.Body)
	}

	var init *Initiator
	if r.Initiator != nil {
		init = &Initiator{Type: r.Initiator.Type, Stack: convertStack(r.Initiator.Stack)}
	}

	headers := map[string]string{}
	if r.Headers != nil {
		headers = r.Headers.Flat()
	}

	return Frame{
		Method: MethodRequestWillBeSent,
		Params: RequestWillBeSentParams{
			RequestID: requestID,
			FrameID:   p.frameID,
			LoaderID:  p.loaderID,
			Request: RequestPayload{
				URL:              record.DisplayURL(r.URL),
				Method:           r.Method,
				Headers:          headers,
				InitialPriority:  p.initialPriority,
				MixedContentType: p.mixedContentType,
				PostData:         postData,
			},
			Timestamp: p.nextTimestamp(),
			WallTime:  r.Timings.RequestStartTime,
			Initiator: init,
			Type:      "Fetch",
		},
	}
}

func (p *Projector) projectResponseReceived(r *record.Record, requestID string) Frame {
	respHeaders := map[string]string{}
	contentType := ""
	if r.ResponseHeaders != nil {
		respHeaders = r.ResponseHeaders.Flat()
		if ct, ok := r.ResponseHeaders.GetHeader("Content-Type"); ok {
			contentType = ct
		}
	}

	mimeType := stripContentTypeParams(contentType)
	resourceType := classifyResourceType(mimeType)

	statusText := ""
	if r.StatusCode == 200 {
		statusText = "OK"
	}

	return Frame{
		Method: MethodResponseReceived,
		Params: ResponseReceivedParams{
			RequestID: requestID,
			Timestamp: p.nextTimestamp(),
			Type:      resourceType.String(),
			Response: ResponsePayload{
				URL:               record.DisplayURL(r.URL),
				Status:            r.StatusCode,
				StatusText:        statusText,
				Headers:           respHeaders,
				ConnectionReused:  false,
				EncodedDataLength: r.Meta.EncodedDataLength,
				Charset:           "utf-8",
				MimeType:          mimeType,
			},
		},
	}
}

func (p *Projector) projectDataReceived(r *record.Record, requestID string) Frame {
	return Frame{
		Method: MethodDataReceived,
		Params: DataReceivedParams{
			RequestID:         requestID,
			Timestamp:         p.nextTimestamp(),
			DataLength:        r.Meta.DataLength,
			EncodedDataLength: r.Meta.EncodedDataLength,
		},
	}
}

func (p *Projector) projectLoadingFinished(r *record.Record, requestID string) Frame {
	return Frame{
		Method: MethodLoadingFinished,
		Params: LoadingFinishedParams{
			RequestID:         requestID,
			Timestamp:         p.nextTimestamp(),
			EncodedDataLength: r.Meta.EncodedDataLength,
		},
	}
}

func stripContentTypeParams(contentType string) string {
	if contentType == "" {
		return ""
	}
	mimeType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return mimeType
}

// serializeBody renders a Record body as postData text: JSON bodies are
// serialised, text bodies passed through, and byte bodies base64-encoded
// since CDP's postData field is a string.
func serializeBody(b record.Body) string {
	switch b.Kind {
	case record.KindJSON:
		data, err := json.Marshal(b.Value)
		if err != nil {
			return ""
		}
		return string(data)
	case record.KindText:
		return b.Text
	case record.KindBytes:
		return base64.StdEncoding.EncodeToString(b.Bytes)
	default:
		return ""
	}
}

func convertStack(s record.Stack) StackTrace {
	frames := make([]CallFrame, 0, len(s.CallFrames))
	for _, f := range s.CallFrames {
		if f == nil {
			continue
		}
		frames = append(frames, CallFrame{
			FunctionName: f.FunctionName,
			ScriptID:     string(f.ScriptID),
			URL:          f.URL,
			LineNumber:   int64(f.LineNumber),
			ColumnNumber: int64(f.ColumnNumber),
		})
	}
	return StackTrace{CallFrames: frames}
}
