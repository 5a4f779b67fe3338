package account

import "sync"

// Selection holds the name of the account the UI is working with.
// It is safe for concurrent use. The zero value has no selection.
type Selection struct {
	mu   sync.RWMutex
	name string
}

// Set selects the named account.
func (s *Selection) Set(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// Get returns the selected account name and whether one is selected.
func (s *Selection) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name, s.name != ""
}

// Clear removes the selection.
func (s *Selection) Clear() {
	s.Set("")
}

// ClearIf removes the selection only when name is selected.
func (s *Selection) ClearIf(name string) {
	s.mu.Lock()
	if s.name == name {
		s.name = ""
	}
	s.mu.Unlock()
}
