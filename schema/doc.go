// Package schema defines the closed response contracts agents must honor.
//
// Every contract is a Go DTO whose JSON schema is generated with
// invopop/jsonschema (additionalProperties:false, every field required) and
// sent to providers as a strict response format. Payloads coming back are
// validated against the same schema before decoding, then the DTO checks its
// parallel arrays for alignment. Only after both checks pass may callers zip
// the arrays into paired records (Chunks, Queries, KeyPoints...).
package schema
