// Package auth issues and checks the bearer tokens that identify learners.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type authCtxKey int

const learnerKey authCtxKey = 1

type Claims struct {
	LearnerID string `json:"lid"`
	jwt.RegisteredClaims
}

type Signer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewSigner(secret, issuer string) *Signer {
	if secret == "" {
		secret = "course-quiz-dev-secret"
	}
	return &Signer{secret: []byte(secret), issuer: issuer, now: time.Now}
}

func (s *Signer) SignToken(learnerID string, ttl time.Duration) (string, error) {
	learnerID = strings.TrimSpace(learnerID)
	if learnerID == "" {
		return "", errors.New("learner id is required")
	}

	now := s.now()
	claims := Claims{
		LearnerID: learnerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   learnerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Signer) ParseToken(tok string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tok, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid && c.LearnerID != "" {
		return c, nil
	}
	return nil, ErrInvalidToken
}

// WithAuth attaches the learner to the request context when the
// Authorization header carries a valid bearer token.
func (s *Signer) WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if strings.HasPrefix(h, "Bearer ") {
			tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			if c, err := s.ParseToken(tok); err == nil {
				next.ServeHTTP(w, r.WithContext(WithLearner(r.Context(), c.LearnerID)))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func WithLearner(ctx context.Context, learnerID string) context.Context {
	return context.WithValue(ctx, learnerKey, learnerID)
}

func LearnerFromContext(ctx context.Context) (string, bool) {
	learnerID, ok := ctx.Value(learnerKey).(string)
	return learnerID, ok && learnerID != ""
}
