package auth

import (
	"fmt"
	"time"

	"github.com/BradenHooton/tipoca/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims the codec embeds itself. Callers may not supply them.
const (
	ClaimIssuedAt = "iat"
	ClaimTokenID  = "jti"
)

const (
	claimUserID = "userId"
	claimEmail  = "email"
)

// Payload is the decoded claim set of a token.
type Payload map[string]any

// IssuedAt returns the embedded issue time.
func (p Payload) IssuedAt() (time.Time, bool) {
	iat, err := jwt.MapClaims(p).GetIssuedAt()
	if err != nil || iat == nil {
		return time.Time{}, false
	}
	return iat.Time, true
}

func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// TokenCodec signs and verifies HS256 tokens. It does not enforce expiry;
// callers interpret the issue time under their own freshness policy.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), now: time.Now}
}

// Sign embeds the issue time and a random token id into payload and signs it.
func (c *TokenCodec) Sign(payload map[string]any) (string, error) {
	if len(c.secret) == 0 {
		return "", models.ErrNoSigningSecret
	}

	claims := make(jwt.MapClaims, len(payload)+2)
	for k, v := range payload {
		if k == ClaimIssuedAt || k == ClaimTokenID {
			return "", fmt.Errorf("%w: reserved claim %q", models.ErrSigning, k)
		}
		claims[k] = v
	}
	claims[ClaimIssuedAt] = c.now().Unix()
	claims[ClaimTokenID] = uuid.NewString()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrSigning, err)
	}
	return signed, nil
}

// Verify checks the signature and returns the embedded payload.
func (c *TokenCodec) Verify(tokenString string) (Payload, error) {
	if len(c.secret) == 0 {
		return nil, models.ErrNoSigningSecret
	}
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", models.ErrInvalidToken)
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidToken, err)
	}

	return Payload(claims), nil
}

// SignSession issues a session token for accountID.
func (c *TokenCodec) SignSession(accountID string) (string, error) {
	return c.Sign(map[string]any{claimUserID: accountID})
}

// ParseSession verifies a session token and returns its account id.
func (c *TokenCodec) ParseSession(tokenString string) (string, error) {
	payload, err := c.Verify(tokenString)
	if err != nil {
		return "", err
	}
	accountID := payload.String(claimUserID)
	if accountID == "" {
		return "", fmt.Errorf("%w: missing %s", models.ErrInvalidToken, claimUserID)
	}
	return accountID, nil
}

// SignReset issues a password reset token over email.
func (c *TokenCodec) SignReset(email string) (string, error) {
	return c.Sign(map[string]any{claimEmail: email})
}

// ResetClaims is the decoded content of a reset token.
type ResetClaims struct {
	Email    string
	IssuedAt time.Time
}

// ParseReset verifies a reset token. Any decode problem is ErrInvalidToken.
func (c *TokenCodec) ParseReset(tokenString string) (*ResetClaims, error) {
	payload, err := c.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	email := payload.String(claimEmail)
	issuedAt, ok := payload.IssuedAt()
	if email == "" || !ok {
		return nil, fmt.Errorf("%w: incomplete reset token", models.ErrInvalidToken)
	}
	return &ResetClaims{Email: email, IssuedAt: issuedAt}, nil
}
