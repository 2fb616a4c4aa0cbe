package tickets

import "sync"

// LockFlags holds the guilds that have ticket creation locked. Flags live in memory only,
// every guild is unlocked after a restart.
type LockFlags struct {
	mu     sync.RWMutex
	locked map[string]bool
}

// NewLockFlags creates a new LockFlags with every guild unlocked.
func NewLockFlags() *LockFlags {
	return &LockFlags{
		locked: make(map[string]bool),
	}
}

// Set sets the lock flag for the guild and reports whether it changed.
func (f *LockFlags) Set(guildID string, locked bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.locked[guildID] == locked {
		return false
	}
	if locked {
		f.locked[guildID] = true
	} else {
		delete(f.locked, guildID)
	}
	return true
}

// IsLocked reports whether ticket creation is locked for the guild.
func (f *LockFlags) IsLocked(guildID string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.locked[guildID]
}
