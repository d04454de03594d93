package storage

import "errors"

// ErrClosed is returned by backends after Close.
var ErrClosed = errors.New("storage closed")

var errNilEntry = errors.New("entry cannot be nil")
