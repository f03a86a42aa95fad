// Package api contains the HTTP handlers for the service's JSON API:
// authentication, artifact management, image-generation requests and quota
// lookups. Handlers decode and validate requests, delegate to services and
// stores, and map internal errors to sanitized responses.
package api
