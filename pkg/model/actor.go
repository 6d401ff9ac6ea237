package model

// Actor is the verified identity the authentication layer hands to the core.
// The core never checks credentials; it only consults role flags.
type Actor struct {
	UserID       string `json:"user_id"`
	IsAdmin      bool   `json:"is_admin"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

// Admin folds the role flags into the single capability that gates
// admin-only operations and bypasses the cancellation-notice cutoff.
func (a Actor) Admin() bool {
	return a.IsAdmin || a.IsSuperAdmin
}
