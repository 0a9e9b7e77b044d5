// Package goid exposes goroutine identity, parsed from runtime stack headers.
package goid

import (
	"bytes"
	"runtime"
)

const header = "goroutine "

// Current returns the id of the calling goroutine.
func Current() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	id, _ := parse(buf[:n])
	return id
}

// Live returns the ids of every goroutine that currently exists.
func Live() map[uint64]struct{} {
	buf := make([]byte, 64<<10)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, len(buf)*2)
	}
	live := make(map[uint64]struct{})
	for len(buf) != 0 {
		if id, ok := parse(buf); ok {
			live[id] = struct{}{}
		}
		// goroutine records are separated by a blank line
		i := bytes.Index(buf, []byte("\n\n"))
		if i < 0 {
			break
		}
		buf = buf[i+2:]
	}
	return live
}

func parse(b []byte) (uint64, bool) {
	if !bytes.HasPrefix(b, []byte(header)) {
		return 0, false
	}
	var (
		id uint64
		ok bool
	)
	for i := len(header); i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			break
		}
		id = id*10 + uint64(b[i]-'0')
		ok = true
	}
	return id, ok
}
