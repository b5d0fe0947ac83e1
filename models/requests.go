package models

// SubmitHitRequest is one device-reported bump event. SessionID and
// AccelerationMagnitude are required; ClientTimestamp is advisory only and
// used for latency diagnostics.
type SubmitHitRequest struct {
	SessionID              string  `json:"sessionId"`
	AccelerationMagnitude  float64 `json:"accelerationMagnitude"`
	AccelerationVectorHash string  `json:"accelerationVectorHash,omitempty"`
	SharingCategory        string  `json:"sharingCategory,omitempty"`
	ClientTimestamp        int64   `json:"clientTimestamp,omitempty"`
}

type SubmitHitResponse struct {
	Success bool   `json:"success"`
	Matched bool   `json:"matched"`
	Token   string `json:"token,omitempty"`
	Role    string `json:"role,omitempty"`
}

type PollStatusResponse struct {
	Success  bool   `json:"success"`
	HasMatch bool   `json:"hasMatch"`
	Token    string `json:"token,omitempty"`
	Role     string `json:"role,omitempty"`
}

// CreateWaitingRequest starts the QR-display path. SessionID is optional and
// generated server-side when absent.
type CreateWaitingRequest struct {
	SessionID       string `json:"sessionId,omitempty"`
	SharingCategory string `json:"sharingCategory,omitempty"`
}

type CreateWaitingResponse struct {
	Success   bool   `json:"success"`
	Token     string `json:"token"`
	SessionID string `json:"sessionId"`
}

// PairedProfileResponse answers getPairedProfile. Status is "waiting" when
// the displayer polls their own unscanned code, "matched" otherwise.
type PairedProfileResponse struct {
	Success         bool         `json:"success"`
	Status          string       `json:"status"`
	Profile         *UserProfile `json:"profile,omitempty"`
	SharingCategory string       `json:"sharingCategory,omitempty"`
	MatchedAt       int64        `json:"matchedAt,omitempty"`
	Role            string       `json:"role,omitempty"`
}

type PreviewResponse struct {
	Success         bool         `json:"success"`
	Profile         *UserProfile `json:"profile"`
	SharingCategory string       `json:"sharingCategory"`
}
