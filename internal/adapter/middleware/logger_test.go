package middleware

import (
	"io"

	"github.com/sirupsen/logrus"
)

func newBufferLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	return l
}
