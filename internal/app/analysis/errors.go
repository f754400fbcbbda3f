package analysis

import "errors"

var (
	ErrInvalidGameID  = errors.New("invalid_game_id")
	ErrNotCancellable = errors.New("not_cancellable")
)
