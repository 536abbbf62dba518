package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"fluxCapacitor/internal/model"
)

// Stdin is the JSONLSource path that reads standard input.
const Stdin = "-"

const maxLineSize = 64 * 1024 * 1024

// JSONLSource replays newline-delimited streamer messages from a file.
type JSONLSource struct {
	path   string
	reader io.Reader
	logger *zap.Logger
}

// NewJSONLSource reads from path, or from stdin when path is "-".
func NewJSONLSource(path string, logger *zap.Logger) *JSONLSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONLSource{path: path, logger: logger}
}

// NewReaderSource reads streamer messages from r.
func NewReaderSource(r io.Reader, logger *zap.Logger) *JSONLSource {
	s := NewJSONLSource("", logger)
	s.reader = r
	return s
}

// Stream sends every well-formed line to out. A blocked read on a file,
// stdin or any io.Closer reader is interrupted by closing it when ctx is done.
func (s *JSONLSource) Stream(ctx context.Context, out chan<- model.StreamerMessage) error {
	r := s.reader
	switch {
	case r != nil:
	case s.path == Stdin:
		r = os.Stdin
	case s.path == "":
		return fmt.Errorf("input path is required")
	default:
		f, err := os.Open(s.path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	if closer, ok := r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = closer.Close() })
		defer stop()
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		msg, err := model.ParseStreamerMessage(line)
		if err != nil {
			s.logger.Warn("skip malformed streamer message", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		if err := send(ctx, out, msg); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}
	s.logger.Info("input exhausted", zap.Int("lines", lineNo))
	return nil
}
