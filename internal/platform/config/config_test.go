package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	kit "sword/internal/platform/testkit"
)

func TestPrefix(t *testing.T) {
	sword := New().Prefix("SWORD_")
	if got := sword.key("DEPOSIT_URL"); got != "SWORD_DEPOSIT_URL" {
		t.Fatalf("key() = %q", got)
	}
	if got := sword.Prefix("LDAP_").key("HOST"); got != "SWORD_LDAP_HOST" {
		t.Fatalf("nested key() = %q", got)
	}
}

func TestMustString(t *testing.T) {
	c := New().Prefix("SERVICE_PGSQL_")
	t.Setenv("SERVICE_PGSQL_DBURL", "  postgres://sword@localhost/sword ")
	if got := c.MustString("DBURL"); got != "postgres://sword@localhost/sword" {
		t.Fatalf("MustString = %q", got)
	}
	t.Setenv("SERVICE_PGSQL_BLANK", "   ")
	kit.MustPanic(t, func() { _ = c.MustString("BLANK") })
	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })
}

func TestMayScalars(t *testing.T) {
	c := New().Prefix("SWORD_")
	t.Setenv("SWORD_REPOSITORY_NAME", " DSpace ")
	t.Setenv("SWORD_HANDLE_CACHE_SIZE", "64")
	t.Setenv("SWORD_BAD_INT", "many")
	t.Setenv("SWORD_SEED_MEMORY", "false")
	t.Setenv("SWORD_BAD_BOOL", "perhaps")
	t.Setenv("SWORD_UPLOAD_TIMEOUT", "90s")
	t.Setenv("SWORD_BAD_DURATION", "soon")

	if got := c.MayString("REPOSITORY_NAME", "x"); got != "DSpace" {
		t.Fatalf("MayString = %q", got)
	}
	if got := c.MayString("UNSET", "x"); got != "x" {
		t.Fatalf("MayString default = %q", got)
	}
	if c.MayInt("HANDLE_CACHE_SIZE", 1024) != 64 || c.MayInt("BAD_INT", 7) != 7 || c.MayInt("UNSET", 3) != 3 {
		t.Fatalf("MayInt mismatch")
	}
	if c.MayBool("SEED_MEMORY", true) || !c.MayBool("BAD_BOOL", true) || c.MayBool("UNSET", false) {
		t.Fatalf("MayBool mismatch")
	}
	if c.MayDuration("UPLOAD_TIMEOUT", time.Minute) != 90*time.Second ||
		c.MayDuration("BAD_DURATION", time.Minute) != time.Minute ||
		c.MayDuration("UNSET", time.Second) != time.Second {
		t.Fatalf("MayDuration mismatch")
	}
}

func TestMayCSV(t *testing.T) {
	c := New().Prefix("SWORD_")
	def := []string{"application/zip"}

	t.Setenv("SWORD_ACCEPTS", " application/zip, ,text/xml ,")
	if diff := cmp.Diff([]string{"application/zip", "text/xml"}, c.MayCSV("ACCEPTS", def)); diff != "" {
		t.Fatalf("MayCSV (-want +got):\n%s", diff)
	}
	t.Setenv("SWORD_EMPTY", " , ,")
	if diff := cmp.Diff(def, c.MayCSV("EMPTY", def)); diff != "" {
		t.Fatalf("blank entries (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(def, c.MayCSV("UNSET", def)); diff != "" {
		t.Fatalf("unset (-want +got):\n%s", diff)
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("BITSTORE_")
	t.Setenv("BITSTORE_KIND", "S3")
	if got := c.MayEnum("KIND", "local", "local", "s3", "memory"); got != "S3" {
		t.Fatalf("MayEnum = %q", got)
	}
	if got := c.MayEnum("UNSET", "local", "local", "s3"); got != "local" {
		t.Fatalf("MayEnum default = %q", got)
	}
	t.Setenv("BITSTORE_BAD", "tape")
	kit.MustPanic(t, func() { _ = c.MayEnum("BAD", "local", "local", "s3") })
}
