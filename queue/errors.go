package queue

import "errors"

// ErrUnavailable is the taxonomy's QueueError: backend unreachable (spec §7).
var ErrUnavailable = errors.New("queue backend unavailable")
