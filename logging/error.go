package logging

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// stackTracer is implemented by errors from github.com/pkg/errors which carry a stack trace.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// errNoStackTrace hides the stack trace of the wrapped error from zap, which would log it as errorVerbose.
type errNoStackTrace struct {
	e error
}

func (e errNoStackTrace) Error() string {
	return e.e.Error()
}

// Error returns a zap.Field for err without the stack trace github.com/pkg/errors may have attached.
// Log messages about failed statements or connections only need the message.
func Error(err error) zap.Field {
	if _, ok := err.(stackTracer); ok {
		return zap.Error(errNoStackTrace{err})
	}

	return zap.Error(err)
}
