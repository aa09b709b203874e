// Package core provides the foundational domain types shared by the
// researchflow packages:
//
//   - Content / Part (role based message segments exchanged with models)
//   - Message (one row of an agent's message table)
//   - The error taxonomy every workflow run surfaces (AgentInvocationError,
//     SchemaValidationError, AlignmentError, UngroundedCitationError)
//   - InvocationBudget (per-run cap on agent calls)
//
// The package has no dependencies on other researchflow packages so that
// model adapters, tools, agents and orchestrators can all build on it.
package core
