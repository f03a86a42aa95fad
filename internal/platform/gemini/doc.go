// Package gemini implements the imagegen.Generator interface using Google's
// Gemini API as the external image-generation service.
package gemini
