package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storagedrive/internal/domain"
)

var (
	ErrNoToken      = errors.New("no authorization header")
	ErrInvalidToken = errors.New("invalid token")
	ErrNotAdmin     = fmt.Errorf("%w: admin role required", domain.ErrForbidden)
)

// Claims - утверждения токена доступа. Subject содержит id владельца.
type Claims struct {
	jwt.RegisteredClaims
	Admin bool `json:"admin,omitempty"`
}

// Verifier проверяет bearer-токены, подписанные общим секретом
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(cfg *Config) *Verifier {
	return &Verifier{secret: []byte(cfg.Secret), issuer: cfg.Issuer}
}

// VerifyToken возвращает id владельца из заголовка Authorization
func (v *Verifier) VerifyToken(r *http.Request) (string, error) {
	tokenString, err := bearerToken(r)
	if err != nil {
		return "", err
	}

	return v.ParseToken(tokenString)
}

// VerifyAdmin как VerifyToken, но дополнительно требует роль администратора
func (v *Verifier) VerifyAdmin(r *http.Request) (string, error) {
	tokenString, err := bearerToken(r)
	if err != nil {
		return "", err
	}

	claims, err := v.parseClaims(tokenString)
	if err != nil {
		return "", err
	}
	if !claims.Admin {
		return "", ErrNotAdmin
	}

	return claims.Subject, nil
}

func (v *Verifier) ParseToken(tokenString string) (string, error) {
	claims, err := v.parseClaims(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

func (v *Verifier) parseClaims(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoToken
	}

	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return "", fmt.Errorf("%w: expected bearer scheme", ErrInvalidToken)
	}
	return tokenString, nil
}

// GenerateToken выпускает токен для владельца. Используется в тестах и утилитах.
func GenerateToken(cfg *Config, ownerID string) (string, error) {
	return signToken(cfg, ownerID, false)
}

// GenerateAdminToken выпускает токен с ролью администратора
func GenerateAdminToken(cfg *Config, ownerID string) (string, error) {
	return signToken(cfg, ownerID, true)
}

func signToken(cfg *Config, ownerID string, admin bool) (string, error) {
	now := time.Now()
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Admin: admin,
	})

	tokenString, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}
