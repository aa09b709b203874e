// Package agent turns declarative agent definitions into callable steps.
//
// An agent is a named, immutable Definition: model reference, instructions,
// at most one tool, a response contract and sampling parameters. Definitions
// are loaded once (from YAML or the registry database) into a Registry.
//
// The Invoker is the only way workflows talk to models. Invoke renders one
// request, runs the bounded tool-call loop for tool-equipped agents and
// returns one of three Result variants:
//
//   - TextResult for the `text` contract
//   - StructuredResult for `strict_json_schema`, decoded and validated
//     against the closed schema (see package schema)
//   - MessageTableResult for `message_table`, the ordered transcript of a
//     tool-equipped agent; callers flatten it to text
//
// Transport failures and timeouts surface as *core.AgentInvocationError and
// are never retried here; contract violations surface as
// *core.SchemaValidationError or *core.AlignmentError.
package agent
