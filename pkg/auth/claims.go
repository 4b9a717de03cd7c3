package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/ttml-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims is the body of every access token. The subject repeats
// the user id so generic JWT tooling can read it.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims pass; jwt calls it during parsing.
func (c *AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("user_id claim is empty")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("role claim %q is not a known role", c.Role)
	}
	if c.Subject != "" && c.Subject != c.UserID.String() {
		return errors.New("subject does not match user_id")
	}
	if c.ID == "" {
		return errors.New("jti claim is empty")
	}
	return nil
}

func (c *AccessTokenClaims) Actor() Actor {
	return Actor{UserID: c.UserID, Role: c.Role}
}
