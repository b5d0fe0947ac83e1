package models

// ExchangeMatch is the durable record of a pairing. The token is a bearer
// capability: anyone holding it can read the match, so it is never logged.
// Status is "waiting" exactly when SessionB is empty (QR-display origin);
// waiting -> matched happens at most once.
type ExchangeMatch struct {
	Token     string       `json:"token"`
	SessionA  string       `json:"sessionA"`
	SessionB  string       `json:"sessionB,omitempty"`
	UserA     string       `json:"userA"`
	UserB     string       `json:"userB,omitempty"`
	ProfileA  *UserProfile `json:"profileA"`
	ProfileB  *UserProfile `json:"profileB,omitempty"`
	CategoryA string       `json:"categoryA"`
	CategoryB string       `json:"categoryB,omitempty"`
	Status    string       `json:"status"`
	CreatedAt int64        `json:"createdAt"`
	MatchedAt int64        `json:"matchedAt,omitempty"`
}

// SessionIndex maps a session id to the match token so the side that is only
// polling can discover a completed match.
type SessionIndex struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}
