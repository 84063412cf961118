package proto

import "sync"

// Builder turns a stream of lines into complete messages. A message is the run of
// payload lines seen before a sentinel; MESSAGE COMPLETE keeps its own text as the last
// line, the closure sentinels do not. A sentinel arriving on an empty buffer produces no
// message but is still reported to the caller.
//
// Builder is safe for concurrent use: pollers feed it while the application drains it.
type Builder struct {
	mu       sync.Mutex
	lines    []string
	messages [][]string
}

func NewBuilder() *Builder { return &Builder{} }

// Add feeds one line and returns its classification.
func (b *Builder) Add(line string) Kind {
	kind := Classify(line)
	b.mu.Lock()
	defer b.mu.Unlock()
	if kind == None {
		b.lines = append(b.lines, line)
		return kind
	}
	if len(b.lines) == 0 {
		return kind
	}
	msg := b.lines
	if kind == EndMessage {
		msg = append(msg, EndMessage.String())
	}
	b.messages = append(b.messages, msg)
	b.lines = nil
	return kind
}

// HasMore reports whether a completed message is waiting.
func (b *Builder) HasMore() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages) > 0
}

// Next removes and returns the oldest completed message, or nil if there is none.
func (b *Builder) Next() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.messages) == 0 {
		return nil
	}
	msg := b.messages[0]
	b.messages[0] = nil
	b.messages = b.messages[1:]
	return msg
}

// Pending returns a copy of the lines not yet terminated by a sentinel.
func (b *Builder) Pending() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}
