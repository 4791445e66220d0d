package activity

// ValidateTransition validates a requested state change against the
// lifecycle table. REMOVED -> PENDING is accepted here because Restore
// uses it; Start, Complete and Remove never request it.
func ValidateTransition(from, to State) error {
	valid := false
	switch from {
	case StatePending:
		if to == StateRunning || to == StateRemoved {
			valid = true
		}
	case StateRunning:
		if to == StateCompleted || to == StateRemoved {
			valid = true
		}
	case StateRemoved:
		if to == StatePending {
			valid = true
		}
	}

	if !valid {
		return ErrInvalidTransition
	}
	return nil
}
