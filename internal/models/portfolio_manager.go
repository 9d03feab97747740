package models

import (
	"sync"
)

// PortfolioManager serializes ledger updates per user.
// Uses per-user locks instead of global lock
type PortfolioManager struct {
	userLocks map[int64]*sync.Mutex // user_id → mutex
	mapMutex  sync.Mutex            // protects the map itself
}

func NewPortfolioManager() *PortfolioManager {
	return &PortfolioManager{
		userLocks: make(map[int64]*sync.Mutex),
	}
}

// LockUser blocks until the caller holds the lock for userID.
func (pm *PortfolioManager) LockUser(userID int64) {
	pm.mapMutex.Lock()
	userMutex, ok := pm.userLocks[userID]
	if !ok {
		userMutex = &sync.Mutex{}
		pm.userLocks[userID] = userMutex
	}
	pm.mapMutex.Unlock()

	userMutex.Lock()
}

func (pm *PortfolioManager) UnlockUser(userID int64) {
	pm.mapMutex.Lock()
	userMutex := pm.userLocks[userID]
	pm.mapMutex.Unlock()

	if userMutex != nil {
		userMutex.Unlock()
	}
}

// WithUser runs fn while holding the lock for userID.
func (pm *PortfolioManager) WithUser(userID int64, fn func() error) error {
	pm.LockUser(userID)
	defer pm.UnlockUser(userID)
	return fn()
}
