// Package agent contains the task execution core: the Executor drives an LLM
// through a bounded two-round tool-calling protocol per incoming user
// message, maintains per-context conversation history and publishes ordered
// task lifecycle events to an event bus.
//
// A single execution is strictly linear: announce (new tasks only), working
// update, context assembly, first model round, cancellation checkpoint,
// optional tool resolution plus second model round, sentinel parsing, commit.
// Every failure between the first model round and the commit is converted to
// a final failed status event; nothing escapes the Execute boundary.
//
// Shared state (conversation store, cancellation checker) is injected at
// construction so multiple executor instances can be hosted side by side.
package agent
