// Package config loads the ingester's YAML configuration.
//
// Loading order: optional .env file (godotenv), ${VAR} expansion, YAML decode,
// defaults, validation. Validation errors name the offending field by its
// dotted YAML path, e.g. "feed.api_key is required".
package config
