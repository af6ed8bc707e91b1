// Package logging provides the DEBUG/INFO severities the peripheral
// cores trace through, each entry tagged with which card emitted it.
package logging

import (
	"os"

	"gopkg.in/Sirupsen/logrus.v0"
)

func init() {
	logrus.SetOutput(os.Stderr)
}

// Card identifies which peripheral core a log entry came from.
type Card string

const (
	CardUthernet2 Card = "uthernet2"
	CardMouse     Card = "mouse"
)

// SetDebug toggles DEBUG-level tracing for all cards.
func SetDebug(enabled bool) {
	if enabled {
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// Debugf logs protocol-internal detail: register pokes, packet
// contents, per-byte ring arithmetic.
func (c Card) Debugf(format string, args ...interface{}) {
	logrus.WithField("_card", string(c)).Debugf(format, args...)
}

// Infof logs card-level events worth surfacing without -debug:
// socket open/close, command writes, DHCP/ARP transitions.
func (c Card) Infof(format string, args ...interface{}) {
	logrus.WithField("_card", string(c)).Infof(format, args...)
}
