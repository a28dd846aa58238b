package history

// Transaction runs fn with pushes grouped under name. Whatever fn pushed is
// recorded as one entry even when it fails, so a single undo backs it out.
func (s *Stack) Transaction(name string, fn func() error) error {
	s.BeginGroup(name)
	defer s.EndGroup()
	return fn()
}
