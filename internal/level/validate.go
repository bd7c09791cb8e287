package level

import "fmt"

// ValidationError contains details about a schema violation.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Validate checks the definition's schema: identifiers present, pool hints
// coherent, durations and weights non-negative. It does not reject waves with
// non-positive entry counts; those are filtered at wave start so a partially
// bad level still runs. A zero-wave level is valid and completes vacuously.
func (l Level) Validate() error {
	if l.ID == "" {
		return ValidationError{Code: "MISSING_ID", Message: "level has no id"}
	}
	if len(l.SpawnPoints) == 0 {
		return ValidationError{
			Code:    "NO_SPAWN_POINTS",
			Message: fmt.Sprintf("level %s declares no spawn points", l.ID),
		}
	}
	if l.InterWaveDelay < 0 {
		return ValidationError{
			Code:    "NEGATIVE_DELAY",
			Message: fmt.Sprintf("level %s has negative inter-wave delay", l.ID),
		}
	}

	for id, hint := range l.Pools {
		if id == "" {
			return ValidationError{
				Code:    "EMPTY_TYPE_ID",
				Message: fmt.Sprintf("level %s has a pool hint with an empty type id", l.ID),
			}
		}
		if err := hint.Policy().Validate(); err != nil {
			return ValidationError{
				Code:    "BAD_POOL_HINT",
				Message: fmt.Sprintf("level %s, type %s: %v", l.ID, id, err),
			}
		}
	}

	for i, w := range l.Waves {
		if w.SpawnInterval < 0 || w.StartDelay < 0 {
			return ValidationError{
				Code:    "NEGATIVE_DELAY",
				Message: fmt.Sprintf("level %s, wave %d has a negative delay", l.ID, i),
			}
		}
		for j, e := range w.Entries {
			if e.Weight < 0 {
				return ValidationError{
					Code:    "NEGATIVE_WEIGHT",
					Message: fmt.Sprintf("level %s, wave %d, entry %d has negative weight", l.ID, i, j),
				}
			}
		}
	}

	return nil
}
