package logcache

import "errors"

// ErrInvalidPage is returned when a page number or page size is below 1.
var ErrInvalidPage = errors.New("logcache: invalid page request")
