package lazy

import (
	"github.com/pkg/errors"
)

var (
	// ErrInternal is wrapped by every contract violation raised by the engine.
	ErrInternal = errors.New("internal error")

	errUnsupportedOperation = errors.New("unsupported operation")
)

func internal(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInternal, format, args...)
}
