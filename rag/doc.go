// Package rag implements the agentic retrieval-augmented answering workflow:
//
//	Init -> Route -> Plan -> RetrieveLoop -> Rerank -> Evidence
//	     -> [RetrieveLoop -> Rerank -> Evidence] x MaxRetries -> Answer -> Done
//
// Route may short-circuit the run: when the router decides no retrieval is
// needed, its assistant message is delivered and the run ends without a single
// retrieval call.
//
// retrieved_context is append-only for the whole run, so the follow-up
// retrieval of a retry accumulates on top of the first retrieval and every
// rerank sees everything retrieved so far.
package rag
