// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	applog "tuner/internal/log"
	"tuner/internal/tuning"
)

// LoggingTransport implements the Transport interface by logging readings at
// debug level.
type LoggingTransport struct {
	sent atomic.Uint64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Info("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	if !applog.Enabled(applog.LevelDebug) {
		return nil
	}

	switch r := data.(type) {
	case tuning.Reading:
		applog.Debugf("LOG_TRANSPORT #%d: %.2f Hz  %s%d  %s  needle %.1f  in tune %v",
			n, r.Frequency, r.NoteName, r.Octave, r.CentsText, r.NeedleAngle, r.InTune)
	default:
		applog.Debugf("LOG_TRANSPORT #%d: (%T) %+v", n, data, data)
	}
	return nil
}

// Sent returns the number of values passed to Send.
func (lt *LoggingTransport) Sent() uint64 {
	return lt.sent.Load()
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LOG_TRANSPORT: Close called after %d messages.", lt.sent.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
