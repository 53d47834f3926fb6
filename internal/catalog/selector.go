package catalog

// Selector holds the id of the chosen workspace, empty when none is selected.
type Selector struct {
	id string
}

// Select reports whether the selection changed.
func (s *Selector) Select(id string) bool {
	if id == s.id {
		return false
	}
	s.id = id
	return true
}

func (s *Selector) ID() string { return s.id }
