// Package config loads per-package configuration structs from environment
// variables using caarlos0/env tags, with optional .env file support via
// godotenv for local development.
package config
