package invoke

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/runnerr0/browsync/internal/model"
)

// maxRequestBytes bounds a single request line.
const maxRequestBytes = 4 << 20

// ErrorPayload is the wire form of an error.
type ErrorPayload struct {
	Kind    model.Kind `json:"kind"`
	Message string     `json:"message"`
}

// PayloadFor converts err into its wire form. Untyped errors map to
// BrowserUnavailable when a read was cancelled and StorageUnavailable
// otherwise.
func PayloadFor(err error) ErrorPayload {
	var e *model.Error
	if errors.As(err, &e) {
		return ErrorPayload{Kind: e.Kind, Message: err.Error()}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorPayload{Kind: model.KindBrowserUnavailable, Message: err.Error()}
	}
	return ErrorPayload{Kind: model.KindStorageUnavailable, Message: err.Error()}
}

// Err turns a payload back into a *model.Error.
func (p ErrorPayload) Err() error {
	return &model.Error{Kind: p.Kind, Msg: p.Message}
}

// Request is one line of the stream protocol.
type Request struct {
	ID   json.RawMessage `json:"id,omitempty"`
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response answers a Request. Exactly one of Result and Error is set.
type Response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorPayload   `json:"error,omitempty"`
}

// Serve reads newline-delimited Requests from r, dispatches each through
// ch and writes one Response line per request to w. It returns when r is
// exhausted or ctx is done.
func Serve(ctx context.Context, ch Channel, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxRequestBytes)
	enc := json.NewEncoder(w)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var resp Response
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			resp.Error = &ErrorPayload{
				Kind:    model.KindInvalidArgument,
				Message: fmt.Sprintf("decode request: %v", err),
			}
		} else {
			resp.ID = req.ID
			result, err := ch.Invoke(ctx, req.Cmd, req.Args)
			if err != nil {
				p := PayloadFor(err)
				resp.Error = &p
			} else {
				resp.Result = result
			}
		}

		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return sc.Err()
}
