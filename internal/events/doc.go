// Package events provides types and interfaces for event-driven task creation.
//
// API handlers emit TaskRequestEvents when background work is needed, without
// direct knowledge of the task runner. Handlers registered on the emitter turn
// events into tasks and submit them, keeping the API and task packages decoupled.
package events
