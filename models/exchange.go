package models

// Location is the coarse geolocation attached to a hit. A lookup failure
// produces an Unknown location, which still participates in matching.
type Location struct {
	City         string  `json:"city,omitempty"`
	Region       string  `json:"region,omitempty"`
	NetworkBlock string  `json:"networkBlock,omitempty"`
	IsVPN        bool    `json:"isVPN,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	Unknown      bool    `json:"unknown,omitempty"`
}

// PendingExchange is one device's unmatched hit, held under a short TTL until
// a counterpart arrives or it expires. Timestamps are Unix milliseconds;
// ServerTimestamp is assigned by the engine clock and never trusted from the
// client.
type PendingExchange struct {
	SessionID              string       `json:"sessionId"`
	UserID                 string       `json:"userId"`
	Profile                *UserProfile `json:"profile"`
	ClientTimestamp        int64        `json:"clientTimestamp,omitempty"`
	ServerTimestamp        int64        `json:"serverTimestamp"`
	Location               Location     `json:"location"`
	AccelerationMagnitude  float64      `json:"accelerationMagnitude"`
	AccelerationVectorHash string       `json:"accelerationVectorHash,omitempty"`
	SharingCategory        string       `json:"sharingCategory"`
	ExpiresAt              int64        `json:"expiresAt"`
}

// MatchResult is what a caller gets back the moment its hit completes a pair.
type MatchResult struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}
