package logcache

import (
	"fmt"
	"io"
	"sync"
)

// DefaultCapacity is the number of lines retained by the node log cache.
const DefaultCapacity = 5000

// Cache is a fixed-capacity ring of log lines.
//
// Thread Safety:
//   - All methods are safe for concurrent use. The cache never calls out
//     while holding its lock.
type Cache struct {
	mu    sync.Mutex
	lines []string
	head  int // index of the oldest line
	size  int
}

// New creates a cache holding at most capacity lines.
// A capacity below 1 falls back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Cache{lines: make([]string, capacity)}
}

// Append adds a line, evicting the oldest one when the cache is full.
func (c *Cache) Append(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	capacity := len(c.lines)
	if c.size == capacity {
		c.lines[c.head] = line
		c.head = (c.head + 1) % capacity
		return
	}
	c.lines[(c.head+c.size)%capacity] = line
	c.size++
}

// Page returns the lines of the given 1-indexed page and the total number of
// retained lines.
func (c *Cache) Page(page, pageSize int) ([]string, int, error) {
	if page < 1 || pageSize < 1 {
		return nil, 0, fmt.Errorf("%w: page=%d page_size=%d", ErrInvalidPage, page, pageSize)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := (page - 1) * pageSize
	if start >= c.size || start/pageSize != page-1 {
		return []string{}, c.size, nil
	}
	end := min(start+pageSize, c.size)

	out := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, c.at(i))
	}
	return out, c.size, nil
}

// Lines returns a copy of every retained line, oldest first.
func (c *Cache) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, c.size)
	for i := range out {
		out[i] = c.at(i)
	}
	return out
}

// WriteTo writes every retained line followed by a newline.
// The snapshot is taken before writing so slow writers never block Append.
func (c *Cache) WriteTo(w io.Writer) (int64, error) {
	var written int64
	for _, line := range c.Lines() {
		n, err := io.WriteString(w, line+"\n")
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Len returns the number of retained lines.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Cap returns the maximum number of retained lines.
func (c *Cache) Cap() int {
	return len(c.lines)
}

// Clear drops every retained line.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.lines)
	c.head = 0
	c.size = 0
}

// at returns the i-th oldest line. Caller must hold c.mu.
func (c *Cache) at(i int) string {
	return c.lines[(c.head+i)%len(c.lines)]
}
