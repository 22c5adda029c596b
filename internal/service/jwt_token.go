package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func registeredClaims(now time.Time, expireHours int) jwt.RegisteredClaims {
	if expireHours <= 0 {
		expireHours = 24
	}
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expireHours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func signToken(secret string, claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// parseToken 仅接受 HS256，claims 需为指针
func parseToken[C jwt.Claims](secret, tokenString string, claims C) (C, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return claims, err
	}
	if !token.Valid {
		return claims, ErrTokenInvalid
	}
	return claims, nil
}

// tokenIssuedBefore 判断 Token 是否在失效时间点之前签发
func tokenIssuedBefore(claims jwt.RegisteredClaims, invalidBefore int64) bool {
	if invalidBefore <= 0 {
		return false
	}
	if claims.IssuedAt == nil {
		return true
	}
	return claims.IssuedAt.Unix() < invalidBefore
}
