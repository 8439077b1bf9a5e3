package auth

import "time"

// SetClock replaces the clock used for token expiry checks.
func SetClock(sm *SessionManager, now func() time.Time) { sm.now = now }
