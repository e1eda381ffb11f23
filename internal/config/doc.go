// Package config handles configuration loading, parsing, and validation
// from defaults, an optional config.yaml and MENTORBOOK_ prefixed environment
// variables. It provides type-safe access to application settings needed by
// the server, the booking and matching services and the outbox dispatcher.
package config
