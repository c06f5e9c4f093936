package game

import "errors"

// Rejections. All of them leave the engine in its prior state.
var (
	ErrInvalidBet          = errors.New("invalid bet")
	ErrIllegalAction       = errors.New("illegal action")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidBalance      = errors.New("invalid balance")
)
