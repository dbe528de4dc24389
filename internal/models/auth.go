package models

import "time"

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RegisterRequest holds the payload for creating an account.
type RegisterRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// AuthResponse is the flat body returned by every auth endpoint.
// Tokens are null when the operation failed.
type AuthResponse struct {
	AccessToken  *string `json:"accessToken"`
	RefreshToken *string `json:"refreshToken"`
	Message      string  `json:"message"`
}

// NewAuthResponse builds a success response carrying both tokens.
func NewAuthResponse(accessToken, refreshToken, message string) AuthResponse {
	return AuthResponse{AccessToken: &accessToken, RefreshToken: &refreshToken, Message: message}
}

// AuthFailure builds a response with null tokens and a message.
func AuthFailure(message string) AuthResponse {
	return AuthResponse{Message: message}
}

// TokenPairResult carries freshly minted tokens out of the session manager.
type TokenPairResult struct {
	AccessToken  string
	RefreshToken string
}

// UserInfo is the public projection of a user. The password hash never
// leaves through it.
type UserInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      UserRole   `json:"role"`
	Status    UserStatus `json:"status"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewUserInfo projects a user into its response shape.
func NewUserInfo(u *User) UserInfo {
	return UserInfo{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Status:    u.Status,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}

// UserInfoList projects a slice of users.
func UserInfoList(users []User) []UserInfo {
	out := make([]UserInfo, len(users))
	for i := range users {
		out[i] = NewUserInfo(&users[i])
	}
	return out
}
