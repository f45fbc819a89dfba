package server

import (
	"sync"
	"time"
)

// MessageLog is the append-only chat log. Clients address it by byte
// offset, so bytes once written never move.
type MessageLog struct {
	mu        sync.RWMutex
	data      []byte
	UpdatedAt time.Time
}

// NewMessageLog creates an empty log.
func NewMessageLog() *MessageLog {
	return &MessageLog{UpdatedAt: time.Now()}
}

// Append adds msg as one line and returns the new size. A trailing newline
// is added when msg lacks one.
func (l *MessageLog) Append(msg []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = append(l.data, msg...)
	if len(msg) == 0 || msg[len(msg)-1] != '\n' {
		l.data = append(l.data, '\n')
	}
	l.UpdatedAt = time.Now()
	return len(l.data)
}

// Size returns the log length in bytes.
func (l *MessageLog) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.data)
}

// Slice returns a copy of bytes [from, to). Bounds are clamped to the log;
// an empty range yields an empty slice.
func (l *MessageLog) Slice(from, to int) []byte {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if to < 0 || to > len(l.data) {
		to = len(l.data)
	}
	if from < 0 {
		from = 0
	}
	if from >= to {
		return []byte{}
	}
	return append([]byte(nil), l.data[from:to]...)
}

// Reset empties the log. Clients notice on their next poll because the
// size drops below their watermark.
func (l *MessageLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = nil
	l.UpdatedAt = time.Now()
}
