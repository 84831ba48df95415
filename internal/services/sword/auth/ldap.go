package auth

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"sword/internal/platform/config"
	perr "sword/internal/platform/errors"
	"sword/internal/services/sword/domain"
)

// LDAPConfig configures the LDAP method
type LDAPConfig struct {
	URL        string
	BindDN     string
	BindPass   string
	BaseDN     string
	UserFilter string
	EmailAttr  string
	StartTLS   bool
	Timeout    time.Duration
}

// LDAPConfigFromEnv reads LDAP_*; an empty URL disables the method
func LDAPConfigFromEnv(c config.Conf) LDAPConfig {
	c = c.Prefix("LDAP_")
	return LDAPConfig{
		URL:        c.MayString("URL", ""),
		BindDN:     c.MayString("BIND_DN", ""),
		BindPass:   c.MayString("BIND_PASSWORD", ""),
		BaseDN:     c.MayString("BASE_DN", ""),
		UserFilter: c.MayString("USER_FILTER", "(uid=%s)"),
		EmailAttr:  c.MayString("EMAIL_ATTR", "mail"),
		StartTLS:   c.MayBool("START_TLS", false),
		Timeout:    c.MayDuration("TIMEOUT", 10*time.Second),
	}
}

// Enabled reports whether an LDAP server is configured
func (c LDAPConfig) Enabled() bool { return c.URL != "" }

type ldapConn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
}

// dialLDAP is a seam for tests; the returned func closes the connection
var dialLDAP = func(cfg LDAPConfig) (ldapConn, func(), error) {
	conn, err := ldap.DialURL(cfg.URL, ldap.DialWithDialer(&net.Dialer{Timeout: cfg.Timeout}))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to ldap: %w", err)
	}
	closer := func() { conn.Close() }
	if cfg.StartTLS && !strings.HasPrefix(cfg.URL, "ldaps://") {
		if err := conn.StartTLS(&tls.Config{ServerName: hostOf(cfg.URL)}); err != nil {
			closer()
			return nil, nil, fmt.Errorf("starttls: %w", err)
		}
	}
	return conn, closer, nil
}

func hostOf(u string) string {
	u = strings.TrimPrefix(strings.TrimPrefix(u, "ldap://"), "ldaps://")
	if h, _, err := net.SplitHostPort(u); err == nil {
		return h
	}
	return u
}

// LDAPMethod binds as the user found by a service search; epeople are never auto-registered
type LDAPMethod struct {
	cfg LDAPConfig
}

// NewLDAPMethod validates the config
func NewLDAPMethod(cfg LDAPConfig) (*LDAPMethod, error) {
	if cfg.URL == "" {
		return nil, errors.New("ldap url is required")
	}
	if cfg.BaseDN == "" {
		return nil, errors.New("ldap base dn is required")
	}
	if cfg.UserFilter == "" {
		cfg.UserFilter = "(uid=%s)"
	}
	if cfg.EmailAttr == "" {
		cfg.EmailAttr = "mail"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &LDAPMethod{cfg: cfg}, nil
}

func (m *LDAPMethod) Name() string { return "ldap" }

func (m *LDAPMethod) Authenticate(ctx context.Context, r domain.Reader, username, password string) (*domain.EPerson, error) {
	// an empty password would be an unauthenticated bind and always succeed
	if password == "" {
		return nil, ErrNoMatch
	}
	conn, closeConn, err := dialLDAP(m.cfg)
	if err != nil {
		return nil, err
	}
	defer closeConn()

	if m.cfg.BindDN != "" {
		if err := conn.Bind(m.cfg.BindDN, m.cfg.BindPass); err != nil {
			return nil, fmt.Errorf("ldap service bind: %w", err)
		}
	}
	req := ldap.NewSearchRequest(
		m.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		1,
		int(m.cfg.Timeout/time.Second),
		false,
		fmt.Sprintf(m.cfg.UserFilter, ldap.EscapeFilter(username)),
		[]string{"dn", m.cfg.EmailAttr},
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("ldap search: %w", err)
	}
	if len(res.Entries) == 0 {
		return nil, ErrNoMatch
	}
	entry := res.Entries[0]
	if err := conn.Bind(entry.DN, password); err != nil {
		return nil, ErrNoMatch
	}

	ep, err := m.match(ctx, r, username, entry.GetAttributeValue(m.cfg.EmailAttr))
	if err != nil {
		return nil, err
	}
	if !ep.CanLogIn {
		return nil, ErrNoMatch
	}
	return ep, nil
}

// match finds the eperson by netid, falling back to the directory mail attribute
func (m *LDAPMethod) match(ctx context.Context, r domain.Reader, netid, mail string) (*domain.EPerson, error) {
	ep, err := r.EPersonByNetID(ctx, netid)
	if err == nil {
		return ep, nil
	}
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil, err
	}
	if mail == "" {
		return nil, ErrNoMatch
	}
	ep, err = r.EPersonByEmail(ctx, mail)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil, ErrNoMatch
	}
	return ep, err
}
