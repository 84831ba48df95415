// Package modkit provides module wiring and core deps
package modkit

import (
	"sword/internal/modkit/repokit"
	"sword/internal/platform/config"
	"sword/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// PG and CH are nil when the backend is disabled; modules fall back or skip
type Deps struct {
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}
