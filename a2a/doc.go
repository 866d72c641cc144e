// Package a2a adapts the task executor to the A2A protocol surface. The
// Processor implements taskmanager.MessageProcessor so it can be hosted by a
// trpc-a2a-go task manager and server; it resolves new versus continuation
// tasks, bridges the executor's event stream onto the task handler and shapes
// the unary / streaming responses. The agent card published at the well-known
// endpoint is defined here as well.
package a2a
