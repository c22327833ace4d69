package storage

// NotFoundError is returned when a record doesn't exist in the store.
type NotFoundError struct {
	Kind string // "turn", "summary", "pin", "conversation"
	ID   string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}

	return e.Kind + " not found: " + e.ID
}
