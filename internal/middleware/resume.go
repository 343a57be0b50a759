package middleware

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const resumeIssuer = "hireflow"

// ResumeClaims identify a draft response a candidate may continue.
type ResumeClaims struct {
	ResponseID   string `json:"rid"`
	AssessmentID string `json:"aid"`
	CandidateID  string `json:"cid,omitempty"`
	jwt.RegisteredClaims
}

// ResumeTokens signs and verifies HS256 resume links.
type ResumeTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewResumeTokens(secret string, ttl time.Duration) *ResumeTokens {
	return &ResumeTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *ResumeTokens) Sign(responseID, assessmentID, candidateID string) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(t.ttl)
	claims := ResumeClaims{
		ResponseID:   responseID,
		AssessmentID: assessmentID,
		CandidateID:  candidateID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    resumeIssuer,
			Subject:   responseID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

func (t *ResumeTokens) Parse(tok string) (*ResumeClaims, error) {
	parsed, err := jwt.ParseWithClaims(tok, &ResumeClaims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(resumeIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}
	if c, ok := parsed.Claims.(*ResumeClaims); ok && parsed.Valid && c.ResponseID != "" {
		return c, nil
	}
	return nil, errors.New("invalid resume token")
}
