package utils // package utils provides token issuing/verification and password hashing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is used when a TokenAuthority is built with a
// non-positive TTL.
const DefaultTokenTTL = 60 * time.Minute

// RevocationSet is the shared record of token identifiers invalidated
// before their natural expiry.  Implementations live in the repository
// package (Redis, MySQL, in-memory).
type RevocationSet interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Token is a signed access token together with the metadata encoded in it.
type Token struct {
	Value     string    // the serialized JWT string
	ID        string    // jti claim
	IssuedAt  time.Time // iat claim
	ExpiresAt time.Time // exp claim
}

// Claims is the verified content of a token.
type Claims struct {
	AccountID uint64
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerificationCause tells why a token was rejected.
type VerificationCause int

const (
	CauseMalformed VerificationCause = iota + 1
	CauseBadSignature
	CauseExpired
	CauseRevoked
)

func (c VerificationCause) String() string {
	switch c {
	case CauseMalformed:
		return "malformed"
	case CauseBadSignature:
		return "bad_signature"
	case CauseExpired:
		return "expired"
	case CauseRevoked:
		return "revoked"
	}
	return "unknown"
}

// VerificationError is returned by Verify when a token is not acceptable.
// Errors from the revocation store are not VerificationErrors.
type VerificationError struct {
	Cause VerificationCause
	Err   error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return "token " + e.Cause.String() + ": " + e.Err.Error()
	}
	return "token " + e.Cause.String()
}

func (e *VerificationError) Unwrap() error { return e.Err }

// CauseOf returns the verification cause carried by err, or 0 when err is
// not a VerificationError.
func CauseOf(err error) VerificationCause {
	var ve *VerificationError
	if errors.As(err, &ve) {
		return ve.Cause
	}
	return 0
}

// TokenAuthority issues, verifies and revokes HS256 access tokens.
type TokenAuthority struct {
	secret  []byte
	ttl     time.Duration
	revoked RevocationSet
	now     func() time.Time
}

// NewTokenAuthority builds an authority signing with secret.  Every Verify
// consults revoked.
func NewTokenAuthority(secret string, ttl time.Duration, revoked RevocationSet) *TokenAuthority {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenAuthority{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: revoked,
		now:     time.Now,
	}
}

// WithClock replaces the time source used for issuing and validating.
func (a *TokenAuthority) WithClock(now func() time.Time) *TokenAuthority {
	a.now = now
	return a
}

// TTL returns the lifetime given to issued tokens.
func (a *TokenAuthority) TTL() time.Duration { return a.ttl }

// Issue signs a new token bound to accountID.  Timestamps are truncated to
// whole seconds because that is the precision of the exp/iat claims.
func (a *TokenAuthority) Issue(accountID uint64) (Token, error) {
	iat := a.now().UTC().Truncate(time.Second)
	exp := iat.Add(a.ttl)
	jti := uuid.NewString()

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(accountID, 10),
		ID:        jti,
		IssuedAt:  jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Value: signed, ID: jti, IssuedAt: iat, ExpiresAt: exp}, nil
}

// Verify checks signature, revocation and expiry, in that order.  The
// revocation set is consulted whenever the claims are readable, including
// for tokens that have already expired.  On CauseRevoked and CauseExpired
// the parsed claims are returned alongside the error.
func (a *TokenAuthority) Verify(ctx context.Context, raw string) (Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &rc,
		func(t *jwt.Token) (interface{}, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)

	expired := false
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, &VerificationError{Cause: CauseMalformed, Err: err}
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return Claims{}, &VerificationError{Cause: CauseBadSignature, Err: err}
		case errors.Is(err, jwt.ErrTokenExpired):
			expired = true
		default:
			return Claims{}, &VerificationError{Cause: CauseMalformed, Err: err}
		}
	}

	claims, err := claimsFrom(rc)
	if err != nil {
		return Claims{}, &VerificationError{Cause: CauseMalformed, Err: err}
	}

	revoked, err := a.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return claims, &VerificationError{Cause: CauseRevoked}
	}
	if expired {
		return claims, &VerificationError{Cause: CauseExpired, Err: jwt.ErrTokenExpired}
	}
	return claims, nil
}

// Revoke adds the token identified by claims to the revocation set until
// its natural expiry.
func (a *TokenAuthority) Revoke(ctx context.Context, claims Claims) error {
	if err := a.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func claimsFrom(rc jwt.RegisteredClaims) (Claims, error) {
	if rc.ID == "" {
		return Claims{}, errors.New("missing jti claim")
	}
	id, err := strconv.ParseUint(rc.Subject, 10, 64)
	if err != nil || id == 0 {
		return Claims{}, fmt.Errorf("invalid sub claim %q", rc.Subject)
	}
	c := Claims{AccountID: id, ID: rc.ID}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time.UTC()
	}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time.UTC()
	}
	return c, nil
}
