package tsdb

import (
	"bytes"
	"sync"
)

// batch accumulates newline-separated line protocol until it is taken.
type batch struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	lines int
	limit int
}

func newBatch(limit int) *batch {
	return &batch{limit: limit}
}

// add appends one line and reports whether the batch reached its limit.
func (b *batch) add(line string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lines > 0 {
		b.buf.WriteByte('\n')
	}
	b.buf.WriteString(line)
	b.lines++
	return b.lines >= b.limit
}

// take empties the batch and returns its body and line count.
func (b *batch) take() ([]byte, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lines == 0 {
		return nil, 0
	}
	body := bytes.Clone(b.buf.Bytes())
	n := b.lines
	b.buf.Reset()
	b.lines = 0
	return body, n
}
