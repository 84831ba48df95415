// Command sword-admin bootstraps the SWORD repository: schema, people, groups,
// communities, collections and deposit policies
package main

import (
	"os"

	"sword/internal/platform/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Get().Error().Err(err).Msg("sword-admin failed")
		os.Exit(1)
	}
}
