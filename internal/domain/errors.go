package domain

import "errors"

var (
	ErrNoSnapshot     = errors.New("no snapshot available")
	ErrNoPrice        = errors.New("no oracle price available")
	ErrUnknownStats   = errors.New("insufficient outcome history")
	ErrNoLiquidity    = errors.New("no liquidity")
	ErrLockHeld       = errors.New("lock already held")
	ErrInvalidCapital = errors.New("capital must be positive")
)
