// Package store defines the persistence interfaces the application core
// depends on, along with shared store errors and transaction helpers.
// Concrete implementations live under internal/platform.
package store
