package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// MaxLineBytes bounds a single encoded message.
const MaxLineBytes = 4 << 20

// Encoder writes messages as JSON lines. It is safe for concurrent use.
type Encoder struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: json.NewEncoder(w)}
}

// Send encodes msg as one line. It implements Sender and never returns a response.
func (e *Encoder) Send(_ context.Context, msg Message) (*Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.enc.Encode(msg); err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.Type, err)
	}
	return nil, nil
}

// Decode reads JSON-line messages from r and sends each to dst until r is
// exhausted or ctx is cancelled. Blank lines are skipped. A message the
// receiver rejects is logged and skipped; only a line that is not a JSON
// message stops decoding.
func Decode(ctx context.Context, r io.Reader, dst Sender, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), MaxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := dst.Send(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("message rejected",
				zap.Int("line", line),
				zap.String("type", msg.Type),
				zap.Error(err))
		}
	}
	return scanner.Err()
}
