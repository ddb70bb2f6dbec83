package dto

// UserProfileResponse is the response of GET /api/v1/user/profile.
type UserProfileResponse struct {
	Available bool   `json:"available"`
	UserID    string `json:"userId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

// ContextResponse is the response of GET /api/v1/user/context.
type ContextResponse struct {
	Context string `json:"context"`
}
