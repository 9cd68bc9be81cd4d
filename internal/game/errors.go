package game

import "errors"

var (
	ErrWrongPhase         = errors.New("game: not allowed in the current phase")
	ErrNotReady           = errors.New("game: every team needs at least one member and all members ready")
	ErrInvalidTeam        = errors.New("game: invalid team")
	ErrInvalidMode        = errors.New("game: invalid mode")
	ErrUnknownParticipant = errors.New("game: unknown participant")
	ErrDuplicateID        = errors.New("game: participant already joined")
	ErrNoTank             = errors.New("game: participant has no live tank")
	ErrPoseRejected       = errors.New("game: pose rejected")
	ErrCooldown           = errors.New("game: weapon cooling down")
)
