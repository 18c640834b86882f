package domain

import "errors"

var (
	ErrMalformedMessage  = errors.New("malformed message")
	ErrUnknownConnection = errors.New("unknown connection")
)
