package client

import "errors"

var (
	ErrNotFound          = errors.New("node not found")
	ErrConnectionFailure = errors.New("connection failure")
)
