// Package cli defines the Cobra command tree for the harvest CLI. Each file
// registers one top-level command with the root command. Commands parse
// flags and wire collaborators; the work itself lives in internal/bootstrap
// and internal/config.
package cli
