// SPDX-License-Identifier: MIT

// Package transport publishes tuner readings to the outside world: JSON over
// WebSocket, compact binary packets over UDP and a log sink for debugging.
package transport

import (
	"errors"
	"sync"
)

// Transport defines a generic interface for sending readings or events.
// Implementations must be safe for concurrent use and must not block the
// display loop.
type Transport interface {
	Send(data any) error
	Close() error
}

// Fanout sends every value to each of its transports.
type Fanout struct {
	mu         sync.Mutex
	transports []Transport
}

// NewFanout returns a transport that forwards to all of ts. Nil entries are
// skipped.
func NewFanout(ts ...Transport) *Fanout {
	f := &Fanout{}
	for _, t := range ts {
		f.Add(t)
	}
	return f
}

// Add registers another transport.
func (f *Fanout) Add(t Transport) {
	if t == nil {
		return
	}
	f.mu.Lock()
	f.transports = append(f.transports, t)
	f.mu.Unlock()
}

// Len returns the number of registered transports.
func (f *Fanout) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transports)
}

// Send forwards data to every transport and joins their errors. A failing
// transport does not stop delivery to the rest.
func (f *Fanout) Send(data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for _, t := range f.transports {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every transport.
func (f *Fanout) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for _, t := range f.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	f.transports = nil
	return errors.Join(errs...)
}

var _ Transport = (*Fanout)(nil)
