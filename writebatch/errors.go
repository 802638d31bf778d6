package writebatch

import "errors"

var (
	// ErrManagerClosed is returned when operations are attempted on a closed manager
	ErrManagerClosed = errors.New("write batch manager is closed")
)
