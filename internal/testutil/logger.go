package testutil

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewTestLogger returns a logger that discards all output.
func NewTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
