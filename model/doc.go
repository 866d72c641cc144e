// Package model defines the provider-agnostic abstractions for interacting
// with language models inside moviemesh.
//
// Core goals:
//   - Normalize tool / function call representation across vendors
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI/OpenRouter, Anthropic) implement the Model interface from
// this package so the executor remains decoupled from vendor SDKs.
package model
