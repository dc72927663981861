package jwt

import (
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// DefaultHRRoles are the role claims that unlock the HR override.
var DefaultHRRoles = []string{"hr", "admin"}

// Service verifies access tokens issued by the external identity service. This service
// never issues tokens itself.
type Service interface {
	JWTAuth() *jwtauth.JWTAuth
	IsHR(claims map[string]interface{}) bool
}

type JWTService struct {
	tokenAuth *jwtauth.JWTAuth
	hrRoles   map[string]struct{}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, hrRoles []string) Service {
	if len(hrRoles) == 0 {
		hrRoles = DefaultHRRoles
	}
	roles := make(map[string]struct{}, len(hrRoles))
	for _, role := range hrRoles {
		roles[role] = struct{}{}
	}

	return &JWTService{
		tokenAuth: jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		hrRoles:   roles,
	}
}

// IsHR reports whether verified claims belong to an HR or admin access token.
func (j *JWTService) IsHR(claims map[string]interface{}) bool {
	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "access" {
		return false
	}

	role, ok := claims["role"].(string)
	if !ok {
		return false
	}

	_, ok = j.hrRoles[role]
	return ok
}
