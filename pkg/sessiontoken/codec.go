package sessiontoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now returns the current UTC timestamp.
func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// NewSystemClock returns a Clock backed by time.Now.
func NewSystemClock() Clock {
	return systemClock{}
}

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Sentinel errors exposed by the codec.
var (
	ErrMissingAccessKey  = errors.New("session.token.missing_access_key")
	ErrMissingRefreshKey = errors.New("session.token.missing_refresh_key")
	ErrMissingIssuer     = errors.New("session.token.missing_issuer")
	ErrInvalidTTL        = errors.New("session.token.invalid_ttl")
	ErrUnknownKind       = errors.New("session.token.unknown_kind")
	ErrEmptyPayload      = errors.New("session.token.empty_payload")

	// ErrTokenMalformed covers every verification failure other than expiry.
	ErrTokenMalformed = errors.New("session.token.malformed")
	// ErrTokenExpired indicates the embedded expiry has elapsed.
	ErrTokenExpired = errors.New("session.token.expired")
)

// Payload is the identity carried by both token kinds.
type Payload struct {
	UserID string
	Role   string
}

// Claims represent the JWT body of access and refresh tokens.
type Claims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	TokenKind Kind   `json:"token_kind"`
	jwt.RegisteredClaims
}

// Payload returns the identity stored in the claims.
func (claims *Claims) Payload() Payload {
	if claims == nil {
		return Payload{}
	}
	return Payload{UserID: claims.UserID, Role: claims.Role}
}

// GetExpiresAt returns the expiry timestamp.
func (claims *Claims) GetExpiresAt() time.Time {
	if claims == nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// Config configures the Codec. Each token kind has its own secret and lifetime.
type Config struct {
	AccessSigningKey  []byte
	RefreshSigningKey []byte
	Issuer            string
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	Clock             Clock
}

// Codec signs and verifies access and refresh tokens.
type Codec struct {
	keys   map[Kind][]byte
	ttls   map[Kind]time.Duration
	issuer string
	clock  Clock
}

// New constructs a Codec after validating the supplied configuration.
func New(configuration Config) (*Codec, error) {
	if len(configuration.AccessSigningKey) == 0 {
		return nil, fmt.Errorf("session.token.new: %w", ErrMissingAccessKey)
	}
	if len(configuration.RefreshSigningKey) == 0 {
		return nil, fmt.Errorf("session.token.new: %w", ErrMissingRefreshKey)
	}
	if strings.TrimSpace(configuration.Issuer) == "" {
		return nil, fmt.Errorf("session.token.new: %w", ErrMissingIssuer)
	}
	if configuration.AccessTTL <= 0 || configuration.RefreshTTL <= 0 {
		return nil, fmt.Errorf("session.token.new: %w", ErrInvalidTTL)
	}
	clock := configuration.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Codec{
		keys: map[Kind][]byte{
			KindAccess:  configuration.AccessSigningKey,
			KindRefresh: configuration.RefreshSigningKey,
		},
		ttls: map[Kind]time.Duration{
			KindAccess:  configuration.AccessTTL,
			KindRefresh: configuration.RefreshTTL,
		},
		issuer: configuration.Issuer,
		clock:  clock,
	}, nil
}

// TTL returns the configured lifetime of the given token kind.
func (codec *Codec) TTL(kind Kind) time.Duration {
	return codec.ttls[kind]
}

// Now exposes the codec clock so callers measure time the same way tokens do.
func (codec *Codec) Now() time.Time {
	return codec.clock.Now()
}

// SignAccess mints an access token for the payload.
func (codec *Codec) SignAccess(payload Payload) (string, time.Time, error) {
	return codec.Sign(KindAccess, payload)
}

// SignRefresh mints a refresh token for the payload.
func (codec *Codec) SignRefresh(payload Payload) (string, time.Time, error) {
	return codec.Sign(KindRefresh, payload)
}

// Sign mints a token of the given kind and returns it with its expiry.
func (codec *Codec) Sign(kind Kind, payload Payload) (string, time.Time, error) {
	signingKey, known := codec.keys[kind]
	if !known {
		return "", time.Time{}, fmt.Errorf("session.token.sign: %w", ErrUnknownKind)
	}
	if strings.TrimSpace(payload.UserID) == "" || strings.TrimSpace(payload.Role) == "" {
		return "", time.Time{}, fmt.Errorf("session.token.sign: %w", ErrEmptyPayload)
	}
	issuedAt := codec.clock.Now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(codec.ttls[kind])
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    payload.UserID,
		Role:      payload.Role,
		TokenKind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    codec.issuer,
			Subject:   payload.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt.Add(-30 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, signErr := token.SignedString(signingKey)
	if signErr != nil {
		return "", time.Time{}, fmt.Errorf("session.token.sign: %w", signErr)
	}
	return signed, expiresAt, nil
}

// VerifyAccess validates an access token against the access secret.
func (codec *Codec) VerifyAccess(tokenString string) (*Claims, error) {
	return codec.Verify(KindAccess, tokenString)
}

// VerifyRefresh validates a refresh token against the refresh secret.
func (codec *Codec) VerifyRefresh(tokenString string) (*Claims, error) {
	return codec.Verify(KindRefresh, tokenString)
}

// Verify validates the token string as the given kind. Failures wrap either
// ErrTokenExpired or ErrTokenMalformed.
func (codec *Codec) Verify(kind Kind, tokenString string) (*Claims, error) {
	signingKey, known := codec.keys[kind]
	if !known {
		return nil, fmt.Errorf("session.token.verify: %w", ErrUnknownKind)
	}
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("session.token.verify.%s: %w", kind, ErrTokenMalformed)
	}
	parsedToken, parseErr := jwt.ParseWithClaims(tokenString, &Claims{}, func(parsed *jwt.Token) (interface{}, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithIssuer(codec.issuer), jwt.WithTimeFunc(func() time.Time {
		return codec.clock.Now()
	}))
	if parseErr != nil {
		if errors.Is(parseErr, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("session.token.verify.%s: %w", kind, ErrTokenExpired)
		}
		return nil, fmt.Errorf("session.token.verify.%s: %w", kind, ErrTokenMalformed)
	}
	if parsedToken == nil || !parsedToken.Valid {
		return nil, fmt.Errorf("session.token.verify.%s: %w", kind, ErrTokenMalformed)
	}
	claims, ok := parsedToken.Claims.(*Claims)
	if !ok || claims.TokenKind != kind || claims.UserID == "" || claims.Role == "" {
		return nil, fmt.Errorf("session.token.verify.%s: %w", kind, ErrTokenMalformed)
	}
	return claims, nil
}
