package models

import "github.com/golang-jwt/jwt/v5"

// OperatorRole distinguishes console operators from scanner agents.
type OperatorRole string

const (
	RoleOperator OperatorRole = "OPERATOR"
	RoleScanner  OperatorRole = "SCANNER"
)

// OperatorClaims is the JWT payload for kiosk API tokens.
type OperatorClaims struct {
	Role OperatorRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenRequest is the passphrase exchange payload.
type TokenRequest struct {
	Passphrase string `json:"passphrase" validate:"required"`
}

// TokenResponse carries an issued access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
