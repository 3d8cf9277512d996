// Package config manages harvest settings stored in ~/.harvest/config.yaml,
// environment overrides (HARVEST_*), and the defaults every bootstrap run uses.
package config
