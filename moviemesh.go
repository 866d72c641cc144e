// Package moviemesh implements a conversational movie-expert agent exposed
// over the A2A protocol. The agent drives an LLM through a bounded two-round
// tool-calling loop against the TMDB metadata API and reports task progress
// as ordered lifecycle events.
//
// Layout:
//   - agent: task orchestration (the execution state machine)
//   - tool: name-indexed tool registry + tool declarations
//   - tmdb: TMDB client and the movie/people search tools
//   - session: per-context conversation history
//   - model, model/openai, model/anthropic: LLM providers
//   - a2a: trpc-a2a-go server glue (task manager, agent card)
//   - config, logging: environment configuration and structured logging
//
// The cmd/moviemesh binary wires everything together; the packages are also
// usable as a library for embedding the executor in another host.
package moviemesh

// Version is reported in the published agent card.
const Version = "0.0.2"
