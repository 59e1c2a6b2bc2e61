package live

import "errors"

// Sentinel kinds for manual resync failures.
var (
	ErrContestNotFound = errors.New("contest not found")
	ErrNoParticipants  = errors.New("no participants")
	ErrNoProblems      = errors.New("no problems")
	ErrNoHandle        = errors.New("participant has no judge handle")
)
