package querysql

import (
	"errors"
	"fmt"
)

// ErrUnsupported is matched (via errors.Is) by every UnsupportedError.
var ErrUnsupported = errors.New("not supported by the SQL backend")

// UnsupportedError reports a query model construct that has no SQLite
// rendering, such as a group join or a nested collection source.
type UnsupportedError struct {
	Construct string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Construct, ErrUnsupported)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

func unsupported(format string, args ...any) error {
	return &UnsupportedError{Construct: fmt.Sprintf(format, args...)}
}
