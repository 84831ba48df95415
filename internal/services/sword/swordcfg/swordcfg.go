// Package swordcfg is the immutable SWORD policy snapshot built at startup
package swordcfg

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"sword/internal/platform/config"
	"sword/internal/platform/logger"
)

// METSDSpaceSIP is the packaging URI the default METS ingester handles
const METSDSpaceSIP = "http://purl.org/net/sword-types/METSDSpaceSIP"

// Config is read once and handed to every component explicitly
type Config struct {
	RepositoryName string

	Accepts       []string
	Packaging     PackagingSet
	MaxUploadSize int // kB, zero or less is unlimited
	Mediated      bool

	KeepOriginal      bool
	BundleName        string
	KeepPackageOnFail bool
	FailedPackageDir  string

	UpdatedField    string
	SlugField       string
	PackageIngester string

	RestoreMode           bool
	UseCollectionTemplate bool
	IdentifyVersion       bool
	GeneratorURL          string
	GeneratorVersion      string

	ExposeItems       bool
	ExposeCommunities bool
	NoOpSupported     bool
	VerboseSupported  bool

	DSpaceURL          string
	DepositURL         string
	ServiceDocumentURL string
	MediaLinkURL       string

	HandlePrefix          string
	HandleCanonicalPrefix string
}

// MaxUploadBytes converts the kB limit, zero meaning unlimited
func (c Config) MaxUploadBytes() int64 {
	if c.MaxUploadSize <= 0 {
		return 0
	}
	return int64(c.MaxUploadSize) * 1024
}

// Load merges SWORD_* env over the property file over defaults
func Load(conf config.Conf, props config.Properties) (Config, error) {
	if props == nil {
		props = config.Properties{}
	}
	c := conf.Prefix("SWORD_")
	str := func(env, prop, def string) string { return c.MayString(env, props.Get(prop, def)) }
	flag := func(env, prop string, def bool) bool { return c.MayBool(env, props.Bool(prop, def)) }

	cfg := Config{
		RepositoryName:        str("REPOSITORY_NAME", "dspace.name", "DSpace"),
		Accepts:               c.MayCSV("ACCEPTS", csv(props.Get("accepts", "application/zip"))),
		MaxUploadSize:         c.MayInt("MAX_UPLOAD_SIZE", props.Int("max-upload-size", 0)),
		Mediated:              flag("ON_BEHALF_OF_ENABLE", "on-behalf-of.enable", true),
		KeepOriginal:          flag("KEEP_ORIGINAL_PACKAGE", "keep-original-package", false),
		BundleName:            str("BUNDLE_NAME", "bundle.name", "SWORD"),
		KeepPackageOnFail:     flag("KEEP_PACKAGE_ON_FAIL", "keep-package-on-fail", false),
		FailedPackageDir:      str("FAILED_PACKAGE_DIR", "failed-package.dir", ""),
		UpdatedField:          str("UPDATED_FIELD", "updated.field", "dc.date.updated"),
		SlugField:             str("SLUG_FIELD", "slug.field", "dc.identifier.slug"),
		PackageIngester:       str("PACKAGE_INGESTER", "mets-ingester.package-ingester", "METS"),
		RestoreMode:           flag("RESTORE_MODE", "restore-mode.enable", false),
		UseCollectionTemplate: flag("USE_COLLECTION_TEMPLATE", "use-collection-template", false),
		IdentifyVersion:       flag("IDENTIFY_VERSION", "identify-version", false),
		GeneratorURL:          str("GENERATOR_URL", "generator.url", "http://www.dspace.org/ns/sword/1.3.1"),
		GeneratorVersion:      str("GENERATOR_VERSION", "generator.version", "1.3"),
		ExposeItems:           flag("EXPOSE_ITEMS", "expose-items", false),
		ExposeCommunities:     flag("EXPOSE_COMMUNITIES", "expose-communities", false),
		NoOpSupported:         true,
		VerboseSupported:      true,
		DSpaceURL:             strings.TrimRight(str("DSPACE_URL", "dspace.url", ""), "/"),
		DepositURL:            strings.TrimRight(str("DEPOSIT_URL", "deposit.url", ""), "/"),
		ServiceDocumentURL:    strings.TrimRight(str("SERVICEDOCUMENT_URL", "servicedocument.url", ""), "/"),
		MediaLinkURL:          strings.TrimRight(str("MEDIA_LINK_URL", "media-link.url", ""), "/"),
		HandlePrefix:          str("HANDLE_PREFIX", "handle.prefix", "123456789"),
		HandleCanonicalPrefix: str("HANDLE_CANONICAL_PREFIX", "handle.canonical.prefix", "http://hdl.handle.net/"),
	}
	if mb := c.MayBytes("MAX_UPLOAD_BYTES", 0); mb > 0 {
		cfg.MaxUploadSize = int((mb + 1023) / 1024)
	}

	var err error
	if cfg.Packaging, err = ParsePackaging(props); err != nil {
		return Config{}, err
	}
	if cfg.DepositURL, err = defaultURL(cfg.DepositURL, cfg.DSpaceURL, "/sword/deposit"); err != nil {
		return Config{}, fmt.Errorf("deposit url: %w", err)
	}
	if cfg.ServiceDocumentURL, err = defaultURL(cfg.ServiceDocumentURL, cfg.DSpaceURL, "/sword/servicedocument"); err != nil {
		return Config{}, fmt.Errorf("service document url: %w", err)
	}
	if cfg.MediaLinkURL, err = defaultURL(cfg.MediaLinkURL, cfg.DSpaceURL, "/sword/media-link"); err != nil {
		return Config{}, fmt.Errorf("media link url: %w", err)
	}
	if cfg.KeepPackageOnFail && cfg.FailedPackageDir == "" {
		logger.Named("sword.config").Warn().Msg("keep-package-on-fail set without failed-package.dir; failed packages will not be kept")
		cfg.KeepPackageOnFail = false
	}
	return cfg, nil
}

// defaultURL derives scheme://host[:port]+path from the repository URL
func defaultURL(explicit, dspace, path string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if dspace == "" {
		return "", errors.New("neither the url nor dspace.url is configured")
	}
	u, err := url.Parse(dspace)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("bad dspace.url %q", dspace)
	}
	return u.Scheme + "://" + u.Host + path, nil
}

func csv(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseQ(key, s string) float64 {
	if s == "" {
		return 1.0
	}
	q, err := strconv.ParseFloat(s, 64)
	if err != nil {
		logger.Named("sword.config").Warn().Str("property", key).Str("value", s).Msg("invalid q; using 1.0")
		return 1.0
	}
	return q
}
