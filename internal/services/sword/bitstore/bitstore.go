// Package bitstore keeps bitstream bytes outside the content repository
package bitstore

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"sword/internal/platform/config"
)

// Store holds opaque blobs addressed by key
type Store interface {
	Kind() string
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Config selects and configures a backend
type Config struct {
	Kind      string
	Path      string
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// ConfigFromEnv reads BITSTORE_* variables
func ConfigFromEnv(c config.Conf) Config {
	c = c.Prefix("BITSTORE_")
	return Config{
		Kind:      c.MayEnum("KIND", KindLocal, KindLocal, KindS3, KindMemory),
		Path:      c.MayString("PATH", "./assetstore"),
		Bucket:    c.MayString("BUCKET", ""),
		Prefix:    c.MayString("PREFIX", ""),
		Region:    c.MayString("REGION", ""),
		Endpoint:  c.MayString("ENDPOINT", ""),
		AccessKey: c.MayString("ACCESS_KEY", ""),
		SecretKey: c.MayString("SECRET_KEY", ""),
	}
}

// Backend kinds registered by this package
const (
	KindLocal  = "local"
	KindS3     = "s3"
	KindMemory = "memory"
)

// Factory builds a Store from config
type Factory func(cfg Config) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a factory for a backend kind
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = f
}

// Kinds lists registered backend kinds
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New builds the backend named by cfg.Kind
func New(cfg Config) (Store, error) {
	registryMu.RLock()
	f, ok := registry[strings.ToLower(cfg.Kind)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown bitstore kind: %q", cfg.Kind)
	}
	return f(cfg)
}

// NewKey returns a fresh key spread over two directory levels
func NewKey() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return path.Join(id[0:2], id[2:4], id)
}
