package models

// AuthView is returned by register and login.
type AuthView struct {
	TokenPair
	UserID int64 `json:"userId"`
}

// MeView is the public projection of the authenticated principal.
type MeView struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// HealthView reports database reachability and clock.
type HealthView struct {
	OK     bool   `json:"ok"`
	DBTime string `json:"dbTime"`
}
