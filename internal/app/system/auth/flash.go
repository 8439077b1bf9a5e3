package auth

import (
	"net/http"

	"go.uber.org/zap"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Kind    string
	Message string
}

// AddFlash queues a message for the next page the user loads.
func (sm *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, kind, msg string) {
	sess := sm.session(r)
	sess.AddFlash(msg, kind)
	if err := sess.Save(r, w); err != nil {
		sm.log.Error("save flash failed", zap.Error(err))
	}
}

// PopFlash returns and clears the pending message, errors first.
func (sm *SessionManager) PopFlash(w http.ResponseWriter, r *http.Request) (Flash, bool) {
	sess := sm.session(r)
	var out Flash
	found := false
	for _, kind := range []string{FlashError, FlashSuccess} {
		for _, v := range sess.Flashes(kind) {
			if msg, ok := v.(string); ok && !found {
				out = Flash{Kind: kind, Message: msg}
				found = true
			}
		}
	}
	if found {
		if err := sess.Save(r, w); err != nil {
			sm.log.Error("clear flash failed", zap.Error(err))
		}
	}
	return out, found
}
