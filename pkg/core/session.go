package core

import "time"

// Session holds the tokens produced by a completed login flow.
// It is the record persisted between the login and data invocations.
type Session struct {
	UserID       string    `json:"user_id"`
	APIKey       string    `json:"api_key"`
	RequestToken string    `json:"request_token"`
	AccessToken  string    `json:"access_token"`
	PublicToken  string    `json:"public_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	CreatedAt    time.Time `json:"timestamp"`
}

// IsZero reports whether the session carries no usable token.
func (s Session) IsZero() bool {
	return s.AccessToken == ""
}

// StaleAt reports whether the session should be considered expired at
// the given instant. Broker access tokens are invalidated daily, so a
// token minted on a previous calendar day in the exchange timezone is
// stale regardless of clock distance.
func (s Session) StaleAt(now time.Time, loc *time.Location) bool {
	if s.IsZero() {
		return true
	}
	created := s.CreatedAt.In(loc)
	current := now.In(loc)
	return created.Year() != current.Year() || created.YearDay() != current.YearDay()
}
