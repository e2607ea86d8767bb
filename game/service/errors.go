package service

import "errors"

var (
	ErrInvalidTicket = errors.New("invalid ticket")
)
