package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/idtoken"

	"multiplication-shooter/models"
)

// Identity is what the identity provider vouches for.
type Identity struct {
	ExternalID    string
	Email         string
	Name          string
	Lastname      *string
	AvatarURL     *string
	EmailVerified bool
}

// IdentityResolver turns a bearer credential into an external identity.
type IdentityResolver interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// TokenValidator is the subset of *idtoken.Validator used here.
type TokenValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

const identityCacheTTL = 5 * time.Minute

type cachedIdentity struct {
	identity  *Identity
	expiresAt time.Time
}

// GoogleIdentityResolver verifies Google ID tokens. Verified tokens are cached
// until they expire (at most identityCacheTTL) and concurrent verifications
// of the same token share one call.
type GoogleIdentityResolver struct {
	clientID  string
	validator TokenValidator
	cache     *expirable.LRU[string, cachedIdentity]
	group     singleflight.Group
	log       *zap.Logger
	now       func() time.Time
}

func NewGoogleIdentityResolver(ctx context.Context, clientID string, cacheSize int, log *zap.Logger) (*GoogleIdentityResolver, error) {
	validator, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("create google token validator: %w", err)
	}
	return NewGoogleIdentityResolverWithValidator(clientID, validator, cacheSize, log), nil
}

func NewGoogleIdentityResolverWithValidator(clientID string, validator TokenValidator, cacheSize int, log *zap.Logger) *GoogleIdentityResolver {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	return &GoogleIdentityResolver{
		clientID:  clientID,
		validator: validator,
		cache:     expirable.NewLRU[string, cachedIdentity](cacheSize, nil, identityCacheTTL),
		log:       log.Named("identity"),
		now:       time.Now,
	}
}

func (r *GoogleIdentityResolver) Verify(ctx context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, fmt.Errorf("empty token: %w", ErrUnauthenticated)
	}

	key := tokenKey(credential)
	if hit, ok := r.cache.Get(key); ok {
		if r.now().Before(hit.expiresAt) {
			return hit.identity, nil
		}
		r.cache.Remove(key)
	}

	// Callers waiting on the same token share this call, so it must not
	// fail because the first caller went away.
	shared := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		payload, err := r.validator.Validate(shared, credential, r.clientID)
		if err != nil {
			return nil, err
		}
		identity, err := identityFromPayload(payload)
		if err != nil {
			return nil, err
		}
		r.cache.Add(key, cachedIdentity{identity: identity, expiresAt: time.Unix(payload.Expires, 0)})
		return identity, nil
	})
	if err != nil {
		r.log.Debug("token rejected", zap.Error(err))
		return nil, fmt.Errorf("verify google token: %v: %w", err, ErrUnauthenticated)
	}
	return v.(*Identity), nil
}

func identityFromPayload(p *idtoken.Payload) (*Identity, error) {
	if p.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	email := claimString(p.Claims, "email")
	if email == "" {
		return nil, fmt.Errorf("token has no email")
	}

	name := claimString(p.Claims, "name")
	if name == "" {
		name = claimString(p.Claims, "given_name")
	}
	verified, _ := p.Claims["email_verified"].(bool)

	return &Identity{
		ExternalID:    p.Subject,
		Email:         email,
		Name:          name,
		Lastname:      models.StringPtr(claimString(p.Claims, "family_name")),
		AvatarURL:     models.StringPtr(claimString(p.Claims, "picture")),
		EmailVerified: verified,
	}, nil
}

func claimString(claims map[string]interface{}, key string) string {
	s, _ := claims[key].(string)
	return s
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
