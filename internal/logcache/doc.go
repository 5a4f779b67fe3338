// Package logcache holds the most recent output lines of the local node.
//
// The cache is a bounded FIFO shared by the node supervisor (writer) and the
// command surface (reader). It is created once at startup and outlives any
// single node run, so lines from a crashed run stay visible until evicted.
//
// # Paging
//
// Pages are 1-indexed and returned in insertion order: page 1 holds the
// oldest retained lines. A page past the end is empty but still reports the
// total number of retained lines.
//
//	cache := logcache.New(logcache.DefaultCapacity)
//	cache.Append("node started")
//	lines, total, err := cache.Page(1, 100)
package logcache
