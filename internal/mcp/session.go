package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/coolify-mcp/internal/logging"
)

const (
	// MaxLineSize bounds a single request line, terminator excluded.
	MaxLineSize = 4 << 20

	// errorCode is the code of every error line.
	errorCode = -1

	readBufferSize = 64 << 10
)

// errorLine is written to the error stream when a request cannot be handled.
type errorLine struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Session processes newline-delimited requests from one input stream,
// strictly one at a time. A Session is not safe for concurrent use.
type Session struct {
	dispatcher *Dispatcher
	in         *bufio.Reader
	out        io.Writer
	errOut     io.Writer
	logger     *logging.Logger
	id         string
	maxLine    int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionLogger sets the diagnostics logger.
func WithSessionLogger(l *logging.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxLineSize overrides MaxLineSize.
func WithMaxLineSize(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.maxLine = n
		}
	}
}

// NewSession creates a Session reading requests from in, writing responses to
// out and per-line errors to errOut.
func NewSession(d *Dispatcher, in io.Reader, out, errOut io.Writer, opts ...SessionOption) *Session {
	s := &Session{
		dispatcher: d,
		in:         bufio.NewReaderSize(in, readBufferSize),
		out:        out,
		errOut:     errOut,
		logger:     logging.NewNop(),
		id:         uuid.NewString(),
		maxLine:    MaxLineSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier attached to every log line.
func (s *Session) ID() string {
	return s.id
}

// Run processes requests until the input ends or ctx is cancelled. End of
// input returns nil. Cancellation is observed between requests and returns
// ctx.Err(). Only failures to read input or write output are returned;
// per-request failures are reported on the error stream.
func (s *Session) Run(ctx context.Context) error {
	ctx = logging.WithSessionID(ctx, s.id)
	s.logger.Info(ctx, "session started")

	var seq uint64
	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info(ctx, "session cancelled", zap.Uint64("requests", seq))
			return err
		}

		line, tooLong, err := s.readLine()
		if errors.Is(err, io.EOF) {
			s.logger.Info(ctx, "session ended", zap.Uint64("requests", seq))
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading request: %w", err)
		}

		if !tooLong && len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		seq++
		reqCtx := logging.WithRequestID(ctx, strconv.FormatUint(seq, 10))

		if tooLong {
			if err := s.reportError(reqCtx, fmt.Errorf("%w: request line exceeds %d bytes", ErrParse, s.maxLine)); err != nil {
				return err
			}
			continue
		}

		if err := s.handleLine(reqCtx, line); err != nil {
			return err
		}
	}
}

// handleLine decodes and dispatches one request. The returned error is an
// output failure; request failures are reported and swallowed.
func (s *Session) handleLine(ctx context.Context, line []byte) error {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return s.reportError(ctx, fmt.Errorf("%w: request is not a JSON object", ErrParse))
	}

	s.logger.Trace(ctx, "request received", zap.String("method", truncate(req.Method, 64)))

	resp, err := s.dispatcher.Handle(ctx, req)
	if err != nil {
		return s.reportError(ctx, err)
	}

	b, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error(ctx, "encoding response failed", zap.Error(err))
		return s.reportError(ctx, errors.New("internal error"))
	}
	if _, err := s.out.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

func (s *Session) reportError(ctx context.Context, err error) error {
	s.dispatcher.metrics.RecordProtocolError(ctx, err)
	s.logger.Warn(ctx, "request rejected", zap.Error(err))

	b, mErr := json.Marshal(errorLine{Error: errorBody{Code: errorCode, Message: err.Error()}})
	if mErr != nil {
		return fmt.Errorf("encoding error line: %w", mErr)
	}
	if _, wErr := s.errOut.Write(append(b, '\n')); wErr != nil {
		return fmt.Errorf("writing error line: %w", wErr)
	}
	return nil
}

// readLine returns the next line without its terminator; a trailing CR is
// dropped too. A final line without a terminator is returned before io.EOF.
// Lines longer than maxLine are consumed and reported with tooLong set.
func (s *Session) readLine() (line []byte, tooLong bool, err error) {
	limit := s.maxLine + len("\r\n")
	for {
		chunk, rerr := s.in.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}

		if errors.Is(rerr, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(rerr, io.EOF) && len(line) == 0 && !tooLong {
			return nil, false, io.EOF
		}
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return nil, false, rerr
		}
		break
	}

	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) > s.maxLine {
		return nil, true, nil
	}
	return line, tooLong, nil
}
