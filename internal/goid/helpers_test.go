package goid

import "time"

const (
	testTimeout = 5 * time.Second
	testTick    = 10 * time.Millisecond
)
