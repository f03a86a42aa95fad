// Package domain defines the core business entities and errors for the
// Atelier API: artifacts (multi-step guided projects), the images generated
// to illustrate them, and per-user generation quotas.
package domain
