package session

import (
	"time"
)

// State is derived on every request from the cookies and never stored
type State int

const (
	StateNoSession State = iota
	StateValid
	StateAccessExpiring
	StateFullyExpired
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateAccessExpiring:
		return "access_expiring"
	case StateFullyExpired:
		return "fully_expired"
	default:
		return "no_session"
	}
}

// Evaluate session state. Missing token counts as expiring one
func Evaluate(access string, refresh string, buffer time.Duration, now time.Time) State {
	if access == "" && refresh == "" {
		return StateNoSession
	}

	accessExpiring := access == "" || IsAboutToExpire(access, buffer, now)
	refreshExpiring := refresh == "" || IsAboutToExpire(refresh, buffer, now)

	switch {
	case !accessExpiring && !refreshExpiring:
		return StateValid
	case accessExpiring && !refreshExpiring:
		return StateAccessExpiring
	default:
		return StateFullyExpired
	}
}
