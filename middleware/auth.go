package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/felixgeelhaar/stack-go/stage"
)

const authLayer = "auth"

// Identity is the caller a call was authenticated as.
type Identity struct {
	// ID identifies the caller, such as a user or key ID.
	ID string
	// Name is a display name.
	Name string
	// Metadata holds whatever else the authenticator knows about the caller.
	Metadata map[string]any
}

type identityContextKey struct{}

// IdentityFromContext returns the identity Auth attached to ctx, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityContextKey{}).(*Identity); ok {
		return id
	}
	return nil
}

// ContextWithIdentity attaches identity to ctx.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// AuthOption configures Auth.
type AuthOption func(*authConfig)

type authConfig struct {
	logger Logger
}

// WithAuthLogger sets the logger for rejected calls.
func WithAuthLogger(l Logger) AuthOption {
	return func(c *authConfig) {
		c.logger = l
	}
}

// Authenticator validates the credentials carried by the call context and
// returns an identity. A nil identity with a nil error means no credentials
// were recognised.
type Authenticator func(ctx context.Context) (*Identity, error)

// Auth returns middleware that authenticates calls using the provided
// authenticator. Unauthenticated calls fail with a mediation error whose
// cause is ErrUnauthorized; the stage is not called.
func Auth[I, O any](authenticator Authenticator, opts ...AuthOption) stage.Middleware[I, O] {
	cfg := &authConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next stage.Stage[I, O]) stage.Stage[I, O] {
		return wrap(next, func(ctx context.Context, in I) (O, error) {
			var zero O

			identity, err := authenticator(ctx)
			if err != nil {
				if cfg.logger != nil {
					cfg.logger.Warn("authentication failed", F("error", err.Error()))
				}
				return zero, stage.MediationCause(authLayer, "authentication failed", errors.Join(ErrUnauthorized, err))
			}

			if identity == nil {
				if cfg.logger != nil {
					cfg.logger.Warn("authentication failed: no identity")
				}
				return zero, stage.MediationCause(authLayer, "authentication required", ErrUnauthorized)
			}

			if cfg.logger != nil {
				cfg.logger.Debug("authenticated", F("identity", identity.ID))
			}

			return next.Call(ContextWithIdentity(ctx, identity), in)
		})
	}
}

// APIKeyAuthenticator reads a key from the call metadata under key, trying
// the lower-case name as well.
// keyValidator returns nil for an unknown key.
func APIKeyAuthenticator(key string, keyValidator func(key string) *Identity) Authenticator {
	return func(ctx context.Context) (*Identity, error) {
		value := MetadataValue(ctx, key)
		if value == "" {
			value = MetadataValue(ctx, strings.ToLower(key))
		}
		if value == "" {
			return nil, nil
		}
		return keyValidator(value), nil
	}
}

// BearerTokenAuthenticator reads a "Bearer" token from the "Authorization"
// metadata value.
// tokenValidator returns nil for an unknown token.
func BearerTokenAuthenticator(tokenValidator func(token string) *Identity) Authenticator {
	return func(ctx context.Context) (*Identity, error) {
		auth := MetadataValue(ctx, "Authorization")
		if auth == "" {
			auth = MetadataValue(ctx, "authorization")
		}

		const prefix = "Bearer "
		token, ok := strings.CutPrefix(auth, prefix)
		if !ok || token == "" {
			return nil, nil
		}

		return tokenValidator(token), nil
	}
}

// StaticAPIKeys validates keys against a fixed key to identity map.
func StaticAPIKeys(keys map[string]*Identity) func(string) *Identity {
	return func(key string) *Identity {
		return keys[key]
	}
}

// StaticTokens validates tokens against a fixed token to identity map.
func StaticTokens(tokens map[string]*Identity) func(string) *Identity {
	return func(token string) *Identity {
		return tokens[token]
	}
}

// ChainAuthenticators tries each authenticator in order and returns the
// first identity found.
func ChainAuthenticators(authenticators ...Authenticator) Authenticator {
	return func(ctx context.Context) (*Identity, error) {
		for _, auth := range authenticators {
			identity, err := auth(ctx)
			if err != nil {
				return nil, err
			}
			if identity != nil {
				return identity, nil
			}
		}
		return nil, nil
	}
}
