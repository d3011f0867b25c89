package filters

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tjfontaine/actionpipe/internal/core/domain"
	"github.com/tjfontaine/actionpipe/internal/core/ports"
)

// APIKey is one accepted key, stored as its SHA-256 hash.
type APIKey struct {
	KeyHash   string
	Principal string
	Scopes    []string
}

// APIKeyFilter authenticates Bearer API keys. A missing or unknown key
// denies without an outcome; a valid key stores the principal in the
// action context.
type APIKeyFilter struct {
	keys   map[string]apiKeyEntry // keyhash -> entry
	logger *slog.Logger
}

type apiKeyEntry struct {
	hash      string
	principal *domain.Principal
}

// NewAPIKeyFilter creates a filter accepting keys.
func NewAPIKeyFilter(keys []APIKey, logger *slog.Logger) *APIKeyFilter {
	if logger == nil {
		logger = slog.Default()
	}
	f := &APIKeyFilter{
		keys:   make(map[string]apiKeyEntry, len(keys)),
		logger: logger,
	}
	for _, k := range keys {
		hash := strings.ToLower(k.KeyHash)
		f.keys[hash] = apiKeyEntry{
			hash:      hash,
			principal: &domain.Principal{Name: k.Principal, Scopes: k.Scopes},
		}
	}
	return f
}

func (f *APIKeyFilter) OnAuthorization(ctx context.Context, c *domain.AuthorizationContext, next domain.Next) (domain.Transition, error) {
	key, err := ExtractAPIKey(c.Action.Request)
	if err != nil {
		f.logger.DebugContext(ctx, "api key rejected", slog.String("reason", err.Error()))
		return domain.Denied(), nil
	}

	p, err := f.validate(key)
	if err != nil {
		f.logger.DebugContext(ctx, "api key rejected", slog.String("reason", err.Error()))
		return domain.Denied(), nil
	}

	c.Action.Items[domain.ItemPrincipal] = p
	return next(ctx)
}

// validate looks up the principal for apiKey.
func (f *APIKeyFilter) validate(apiKey string) (*domain.Principal, error) {
	keyHash := HashAPIKey(apiKey)

	e, ok := f.keys[keyHash]
	if !ok {
		return nil, fmt.Errorf("invalid API key")
	}

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare([]byte(keyHash), []byte(e.hash)) != 1 {
		return nil, fmt.Errorf("invalid API key")
	}
	return e.principal, nil
}

// ExtractAPIKey extracts the API key from the Authorization header
func ExtractAPIKey(r *http.Request) (string, error) {
	if r == nil {
		return "", fmt.Errorf("no request")
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	// Support "Bearer <key>" format
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	if strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("unsupported authorization scheme")
	}

	return parts[1], nil
}

// HashAPIKey creates a SHA-256 hash of an API key for storage
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}

var _ ports.AuthorizationFilter = (*APIKeyFilter)(nil)
