package account

import (
	"sync"
	"testing"
)

func TestSelection(t *testing.T) {
	var s Selection

	if name, ok := s.Get(); ok || name != "" {
		t.Errorf("zero Selection Get() = %q, %v", name, ok)
	}

	s.Set("alice")
	if name, ok := s.Get(); !ok || name != "alice" {
		t.Errorf("Get() = %q, %v, want alice", name, ok)
	}

	s.ClearIf("bob")
	if _, ok := s.Get(); !ok {
		t.Error("ClearIf(bob) cleared alice")
	}

	s.ClearIf("alice")
	if _, ok := s.Get(); ok {
		t.Error("ClearIf(alice) left selection")
	}

	s.Set("carol")
	s.Clear()
	if _, ok := s.Get(); ok {
		t.Error("Clear() left selection")
	}
}

func TestSelection_Concurrent(t *testing.T) {
	var s Selection
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set("alice")
		}()
		go func() {
			defer wg.Done()
			s.Get()
		}()
	}
	wg.Wait()

	if name, _ := s.Get(); name != "alice" {
		t.Errorf("Get() = %q, want alice", name)
	}
}
