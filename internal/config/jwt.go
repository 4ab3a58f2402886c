package config

import "time"

// JWTSecret signs session tokens. Required.
func JWTSecret() string {
	return MustGetEnv("JWT_SECRET")
}

func JWTIssuer() string {
	return GetEnv("JWT_ISSUER", "campusconnect")
}

func JWTExpiresIn() time.Duration {
	return MustParseDuration("JWT_EXPIRES_IN", "24h")
}
