// Package chat turns the assistant's server-sent event stream into text
// fragments that callers pull one at a time.
package chat

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"storefront-bff/internal/logging"
)

const (
	unparseableErrorFragment = "\n\n[Received an unparseable error event from AI]"
	unknownErrorMessage      = "Unknown error"
)

// Apology is the fragment yielded when the assistant cannot be reached.
func Apology(err error) string {
	return fmt.Sprintf("I'm sorry, but I encountered an error connecting to the AI assistant (%s). Please try again later.", err)
}

type textFrame struct {
	Text string `json:"text"`
}

type errorFrame struct {
	Message string `json:"message"`
}

type event struct {
	name string
	data string
}

// Stream is single-pass and not safe for concurrent use.
type Stream struct {
	ctx     context.Context
	body    io.Closer
	reader  *bufio.Reader
	pending []string
	done    bool
	logger  *slog.Logger
}

func NewStream(ctx context.Context, body io.ReadCloser) *Stream {
	return &Stream{
		ctx:    ctx,
		body:   body,
		reader: bufio.NewReader(body),
		logger: logging.New("chat"),
	}
}

// Failed returns a stream that yields a single apology for err.
func Failed(err error) *Stream {
	logger := logging.New("chat")
	logger.Error("Error fetching AI content stream", "error", err)
	return &Stream{
		ctx:     context.Background(),
		pending: []string{Apology(err)},
		done:    true,
		logger:  logger,
	}
}

// Next blocks until the next fragment is available. The second result is
// false once the stream has ended.
func (s *Stream) Next() (string, bool) {
	for {
		if len(s.pending) > 0 {
			frag := s.pending[0]
			s.pending = s.pending[1:]
			return frag, true
		}
		if s.done {
			s.Close()
			return "", false
		}

		ev, err := s.readEvent()
		if ev != nil {
			s.handle(*ev)
		}
		if err != nil {
			s.finish(err)
		}
	}
}

// All adapts the stream to a range-over-func sequence.
func (s *Stream) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		defer s.Close()
		for {
			frag, ok := s.Next()
			if !ok || !yield(frag) {
				return
			}
		}
	}
}

func (s *Stream) Close() error {
	s.done = true
	if s.body == nil {
		return nil
	}
	err := s.body.Close()
	s.body = nil
	return err
}

func (s *Stream) handle(ev event) {
	switch ev.name {
	case "done":
		s.logger.Debug("AI stream finished")
		s.done = true

	case "error":
		var frame errorFrame
		if err := json.Unmarshal([]byte(ev.data), &frame); err != nil {
			s.logger.Error("Failed to parse SSE error event", "data", ev.data, "error", err)
			s.pending = append(s.pending, unparseableErrorFragment)
		} else {
			msg := frame.Message
			if msg == "" {
				msg = unknownErrorMessage
			}
			s.logger.Error("AI stream error event", "message", msg)
			s.pending = append(s.pending, fmt.Sprintf("\n\n[Error from AI: %s]", msg))
		}
		s.done = true

	default:
		if ev.data == "" {
			return
		}
		var frame textFrame
		if err := json.Unmarshal([]byte(ev.data), &frame); err != nil {
			s.logger.Warn("Failed to parse SSE data chunk", "data", ev.data, "error", err)
			return
		}
		if frame.Text != "" {
			s.pending = append(s.pending, frame.Text)
		}
	}
}

func (s *Stream) finish(err error) {
	if s.done {
		return
	}
	s.done = true
	if errors.Is(err, io.EOF) {
		return
	}
	if s.ctx.Err() != nil {
		s.logger.Debug("AI stream abandoned", "error", s.ctx.Err())
		return
	}
	s.logger.Error("Error processing AI content stream", "error", err)
	s.pending = append(s.pending, Apology(err))
}

// readEvent reads up to the next blank line. It may return an event together
// with io.EOF when the body ends without a trailing separator.
func (s *Stream) readEvent() (*event, error) {
	var (
		ev    event
		data  []string
		lines int
	)
	for {
		if err := s.ctx.Err(); err != nil {
			return nil, err
		}

		line, err := s.reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")

		if line != "" {
			lines++
			switch {
			case strings.HasPrefix(line, ":"):
			case strings.HasPrefix(line, "event:"):
				ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}

		if err != nil {
			if lines == 0 {
				return nil, err
			}
			ev.data = strings.Join(data, "\n")
			return &ev, err
		}
		if line == "" && lines > 0 {
			ev.data = strings.Join(data, "\n")
			return &ev, nil
		}
	}
}
