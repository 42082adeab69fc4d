package auth

import "github.com/golang-jwt/jwt/v5"

// JWT wraps a pre-issued bearer token as the "jwt" scheme credential,
// mirroring the bearer-token auth scheme modern coordination-service
// deployments accept alongside digest/SASL.
func JWT(token string) (scheme string, cred []byte) {
	return "jwt", []byte(token)
}

// ParseJWTClaims decodes (without verifying — verification is the
// issuing authority's job, not this client's) the claims of a JWT
// credential, for callers that want to log or inspect expiry before
// presenting it.
func ParseJWTClaims(token string) (jwt.MapClaims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	_, _, err := parser.ParseUnverified(token, claims)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
