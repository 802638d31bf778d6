package client

import "errors"

var (
	// ErrNotConnected is returned when querying before Connect
	ErrNotConnected = errors.New("client is not connected")

	// ErrInvalidConnection is returned after Connect failed
	ErrInvalidConnection = errors.New("client connection is invalid")

	// ErrAlreadyConnected is returned when Connect is called twice
	ErrAlreadyConnected = errors.New("client is already connected")

	// ErrConnecting is returned when Connect is called while another is dialing
	ErrConnecting = errors.New("client is connecting")

	// ErrClosed is returned when operations are attempted on a closed client
	ErrClosed = errors.New("client is closed")

	// ErrInvalidPolicy is returned by New for unusable policies
	ErrInvalidPolicy = errors.New("invalid client policy")

	// ErrNilCallback is returned by the async queries when no callback is given
	ErrNilCallback = errors.New("callback is nil")

	// ErrResultReleased is returned when accessing a released result
	ErrResultReleased = errors.New("result is released")

	// ErrResultMoved is returned when accessing a result whose ownership moved
	ErrResultMoved = errors.New("result ownership was moved")
)
