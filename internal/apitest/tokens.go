package apitest

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultTokenTTL = 15 * time.Minute

// Claims is what the backend needs back from a credential
type Claims struct {
	UserID int64
	Email  string
	Role   string
}

type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newTokenIssuer(now func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		secret: []byte(uuid.NewString()),
		ttl:    defaultTokenTTL,
		now:    now,
	}
}

// Issue signs an HS256 credential for acct.
func (ti *tokenIssuer) Issue(acct *account) (string, error) {
	issuedAt := ti.now()
	claims := jwtlib.MapClaims{
		"sub":   strconv.FormatInt(acct.ID, 10),
		"email": acct.Email,
		"role":  string(acct.Role),
		"iat":   issuedAt.Unix(),
		"exp":   issuedAt.Add(ti.ttl).Unix(),
		"jti":   uuid.NewString(), // Keeps two credentials issued in the same second distinct
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry.
func (ti *tokenIssuer) Verify(token string) (Claims, error) {
	return ti.parse(token, jwtlib.WithTimeFunc(ti.now), jwtlib.WithExpirationRequired())
}

// VerifyStale checks the signature only, accepting expired credentials for refresh.
func (ti *tokenIssuer) VerifyStale(token string) (Claims, error) {
	return ti.parse(token, jwtlib.WithoutClaimsValidation())
}

func (ti *tokenIssuer) parse(token string, opts ...jwtlib.ParserOption) (Claims, error) {
	opts = append(opts, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))
	parsed, err := jwtlib.Parse(token, func(*jwtlib.Token) (any, error) {
		return ti.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}

	mc, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return Claims{}, errors.New("unexpected claims type")
	}
	sub, err := mc.GetSubject()
	if err != nil {
		return Claims{}, fmt.Errorf("subject: %w", err)
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return Claims{}, fmt.Errorf("subject %q: %w", sub, err)
	}
	email, _ := mc["email"].(string)
	role, _ := mc["role"].(string)
	return Claims{UserID: id, Email: email, Role: role}, nil
}
