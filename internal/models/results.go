package models

import "time"

// ResetTokenTTL is how long a password reset token can be redeemed.
const ResetTokenTTL = 30 * time.Minute

// LoginInput is what the HTTP layer hands to login and signup after
// syntactic validation.
type LoginInput struct {
	Email    string
	Password string
	Device   DeviceInfo
	SourceIP string
}

// LoginResult is the outcome of a credential check. AuthError with Locked
// distinguishes a locked account from generic bad credentials.
type LoginResult struct {
	AuthError bool
	Locked    bool
	User      *PublicAccount
	Token     string
}

type SignupResult struct {
	User  *PublicAccount `json:"user"`
	Token string         `json:"token"`
}

// ResetResult: at most one flag is set; neither means the password changed.
type ResetResult struct {
	InvalidToken bool
	TokenExpired bool
}

func (r ResetResult) OK() bool {
	return !r.InvalidToken && !r.TokenExpired
}
