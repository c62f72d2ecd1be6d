package secret

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-secure-stdlib/parseutil"

	appErr "github.com/samims/hitcounter/internal/errors"
)

// StoreEnv resolves secrets from environment variables.
const StoreEnv = "env"

// Provider fetches credentials by key.
type Provider interface {
	GetSecret(ctx context.Context, key string) (string, error)
}

// StoreProvider resolves a key against the configured secret store: either
// the process environment or a directory with one file per secret (the
// layout used by docker and kubernetes secret mounts). Resolved values are
// cached for the life of the process.
type StoreProvider struct {
	store  string
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]string
}

func NewStoreProvider(store string, logger *slog.Logger) *StoreProvider {
	if store == "" {
		store = StoreEnv
	}
	return &StoreProvider{
		store:  store,
		logger: logger.With("layer", "secret", "component", "storeProvider"),
		cache:  make(map[string]string),
	}
}

func (p *StoreProvider) GetSecret(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", appErr.NewSecretRetrievalFailed("lookup of %q cancelled: %v", key, err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", appErr.NewSecretRetrievalFailed("empty secret key")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.cache[key]; ok {
		return v, nil
	}

	ref := p.reference(key)
	val, err := parseutil.MustParsePath(ref, parseutil.WithErrorOnMissingEnv(true))
	if err != nil {
		p.logger.Error("Secret lookup failed", slog.String("key", key), slog.Any("error", err))
		return "", appErr.NewSecretRetrievalFailed("lookup of %q: %v", key, err)
	}
	if val == "" {
		p.logger.Error("Secret is empty", slog.String("key", key))
		return "", appErr.NewSecretRetrievalFailed("secret %q is empty", key)
	}

	p.cache[key] = val
	p.logger.Debug("Secret resolved", slog.String("key", key))
	return val, nil
}

func (p *StoreProvider) reference(key string) string {
	if p.store == StoreEnv {
		return "env://" + key
	}
	return "file://" + filepath.Join(p.store, filepath.Base(key))
}

// Resolve returns the secret named by ref when ref is set, otherwise plain.
func Resolve(ctx context.Context, p Provider, ref, plain string) (string, error) {
	if ref == "" {
		return plain, nil
	}
	return p.GetSecret(ctx, ref)
}
