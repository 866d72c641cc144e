// Package session houses conversation history storage keyed by context id.
// The executor depends on the agent.ContextStore interface; keeping only
// implementations here lets the wiring layer swap backends (Redis, Postgres,
// etc.) without changing any calling code.
package session
