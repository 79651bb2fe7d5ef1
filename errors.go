package sioclient

import (
	"github.com/pkg/errors"
)

var (
	ErrInvalidPacket        = errors.New("invalid socket packet")
	ErrUnexpectedAttachment = errors.New("binary attachment without pending packet")
	ErrNotConnected         = errors.New("socket not connected")
	ErrManagerClosed        = errors.New("manager closed")
	ErrInvalidConfig        = errors.New("invalid config")
	ErrHandshake            = errors.New("engine handshake failed")
)
