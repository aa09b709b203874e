// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with language models inside researchflow.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition)
//   - Carry response contracts (strict JSON schema) to providers that support them
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from this
// package so higher layers (agent invoker, orchestrators) remain decoupled from vendor SDKs.
package model
