// Package imagegen provides interfaces and shared types for interacting with
// external image-generation services. It abstracts the details of provider
// API integration (Gemini, OpenAI), allowing the application to illustrate
// artifacts without coupling to a specific external service.
package imagegen
