package types

// SignupRequest represents the request body for creating an account
type SignupRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest accepts either a username or an email as the identifier
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// ResetRequest starts a new challenge of TimeFrame days
type ResetRequest struct {
	TimeFrame int `json:"time_frame" binding:"required,min=1,max=365"`
}

// QueryRequest is a free-text food log or question
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// AuthResponse is returned by signup and login
type AuthResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}
