package transport

import (
	"bufio"
	"codelens/internal/mcp/contracts"
	"codelens/internal/shared/util"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const defaultMaxLineBytes = 8 * 1024 * 1024

// Responder delivers the response of one request. It may be called from any
// goroutine, once per request.
type Responder func(resp contracts.Response)

// Handler accepts one decoded request. It may respond before returning or
// later from another goroutine.
type Handler func(ctx context.Context, req contracts.Request, respond Responder)

type Adapter interface {
	Start(ctx context.Context, handler Handler) error
	Stop() error
}

type Options struct {
	RateLimit    float64 // requests per second, 0 disables
	RateBurst    int
	MaxLineBytes int
	Logger       *slog.Logger
}

// Stdio speaks the line protocol: one JSON request per input line, one JSON
// response per output line.
type Stdio struct {
	in      io.Reader
	out     *bufio.Writer
	limiter *util.Limiter
	maxLine int
	logger  *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	running bool
}

func NewStdio(in io.Reader, out io.Writer, opts Options) *Stdio {
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = defaultMaxLineBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Stdio{
		in:      in,
		out:     bufio.NewWriter(out),
		limiter: util.NewLimiter(opts.RateLimit, opts.RateBurst),
		maxLine: opts.MaxLineBytes,
		logger:  opts.Logger,
	}
}

// Start reads requests until the input ends or ctx is cancelled. It returns
// nil on a clean end of input.
func (s *Stdio) Start(ctx context.Context, handler Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if handler == nil {
		return fmt.Errorf("stdio handler is required")
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("stdio transport already started")
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	return s.serve(ctx, handler)
}

// Stop closes the input when it can be closed, which ends Start.
func (s *Stdio) Stop() error {
	if c, ok := s.in.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Stdio) serve(ctx context.Context, handler Handler) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, min(64*1024, s.maxLine)), s.maxLine)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		req, err := decodeRequest([]byte(line))
		if err != nil {
			s.rejectLine([]byte(line), err)
			continue
		}
		if err := s.limiter.Wait(ctx, 1); err != nil {
			return err
		}
		handler(ctx, req, s.Write)
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
			return nil
		}
		if errors.Is(err, bufio.ErrTooLong) {
			return fmt.Errorf("request line exceeds %d bytes: %w", s.maxLine, err)
		}
		return err
	}
	return nil
}

// Write sends one response line.
func (s *Stdio) Write(resp contracts.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("encode response failed", "id", resp.ID, "error", err)
		toolErr := contracts.FromError(fmt.Errorf("response could not be encoded: %w", err))
		data, _ = json.Marshal(contracts.Response{ID: resp.ID, Error: &toolErr})
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.logger.Error("write response failed", "id", resp.ID, "error", err)
		return
	}
	if err := s.out.Flush(); err != nil {
		s.logger.Error("flush response failed", "id", resp.ID, "error", err)
	}
}

func decodeRequest(line []byte) (contracts.Request, error) {
	var req contracts.Request
	if err := json.Unmarshal(line, &req); err != nil {
		return contracts.Request{}, err
	}
	return req, nil
}

// rejectLine answers a malformed line when its id can still be read and
// drops it otherwise.
func (s *Stdio) rejectLine(line []byte, cause error) {
	var probe struct {
		ID *uint64 `json:"id"`
	}
	if err := json.Unmarshal(line, &probe); err != nil || probe.ID == nil {
		s.logger.Warn("dropping malformed request line", "error", cause)
		return
	}
	toolErr := contracts.InvalidArgument("malformed request: "+cause.Error(), nil)
	s.Write(contracts.Response{ID: *probe.ID, Error: &toolErr})
}
