package module

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sword/internal/platform/config"
	"sword/internal/services/sword/auth"
	"sword/internal/services/sword/bitstore"
)

// Options controls how the sword module builds its collaborators
type Options struct {
	// PropertiesPath is the sword.cfg style file merged under SWORD_* env
	PropertiesPath string
	SpoolDir       string
	HandleCache    int
	UploadTimeout  time.Duration
	// MaxConcurrentDeposits caps in-flight deposits; zero leaves them unbounded
	MaxConcurrentDeposits int
	// SeedMemory seeds the in-memory repository when no postgres seam is wired
	SeedMemory bool

	Bitstore bitstore.Config
	LDAP     auth.LDAPConfig

	// Registerer receives the deposit metrics; nil uses a private registry
	Registerer prometheus.Registerer
}

// FromConfig reads SWORD_*, BITSTORE_* and LDAP_* settings
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("SWORD_")
	return Options{
		PropertiesPath:        c.MayString("PROPERTIES", ""),
		SpoolDir:              c.MayString("SPOOL_DIR", ""),
		HandleCache:           c.MayInt("HANDLE_CACHE_SIZE", 1024),
		UploadTimeout:         c.MayDuration("UPLOAD_TIMEOUT", 10*time.Minute),
		MaxConcurrentDeposits: c.MayInt("MAX_CONCURRENT_DEPOSITS", 8),
		SeedMemory:            c.MayBool("SEED_MEMORY", true),
		Bitstore:              bitstore.ConfigFromEnv(cfg),
		LDAP:                  auth.LDAPConfigFromEnv(cfg),
	}
}
