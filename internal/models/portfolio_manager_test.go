package models

import (
	"sync"
	"testing"
)

func TestPortfolioManager_SerializesSameUser(t *testing.T) {
	pm := NewPortfolioManager()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pm.WithUser(7, func() error {
				current := counter
				counter = current + 1
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("Race condition detected! Expected counter 100, got %d", counter)
	}
}

func TestPortfolioManager_IndependentUsers(t *testing.T) {
	pm := NewPortfolioManager()

	pm.LockUser(1)
	defer pm.UnlockUser(1)

	done := make(chan struct{})
	go func() {
		pm.LockUser(2)
		pm.UnlockUser(2)
		close(done)
	}()

	<-done
}

func TestPortfolioManager_UnlockUnknownUser(t *testing.T) {
	pm := NewPortfolioManager()
	pm.UnlockUser(42)
}
