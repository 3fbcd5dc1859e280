package interview

// allowedTransitions enumerates every legal edge in the lifecycle state
// machine (spec.md §4.6). Status changes that are not represented here
// are rejected at the service boundary with [apperrors.IllegalState].
var allowedTransitions = map[Status][]Status{
	StatusCreated:          {StatusGeneratingVideos},
	StatusGeneratingVideos: {StatusInProgress, StatusFailed},
	StatusInProgress:       {StatusProcessing, StatusFailed},
	StatusProcessing:       {StatusCompleted, StatusFailed},
	StatusCompleted:        {},
	StatusFailed:           {},
}

// Allowed reports whether transitioning from to is a legal edge in the
// state machine.
func Allowed(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func Terminal(s Status) bool {
	return s == StatusCompleted || s == StatusFailed
}
