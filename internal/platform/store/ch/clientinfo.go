package ch

import (
	"os"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"

	"sword/internal/core/version"
)

// clientInfo names this process in system.query_log as name/tag followed by
// the build version and host; blank parts are left out
func clientInfo(name, tag string) clickhouse.ClientInfo {
	var info clickhouse.ClientInfo
	add := func(n, v string) {
		n, v = strings.TrimSpace(n), strings.TrimSpace(v)
		if n == "" {
			return
		}
		info.Products = append(info.Products, struct{ Name, Version string }{n, v})
	}
	add(name, tag)
	add("build", version.Info().Version)
	if host, err := os.Hostname(); err == nil {
		add("host", host)
	}
	return info
}
