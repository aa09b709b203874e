// Package research implements the deep research workflow:
//
//	Init -> Clarify -> Title -> ResearchIteration x depth -> Synthesize -> Done
//
// Clarify asks the user the clarifying questions an agent proposes and folds
// the answers into the enriched query. Each research iteration plans search
// queries, searches (web or internal documents) for at most breadth of them,
// condenses every result into learnings and collects follow-up questions that
// steer the next iteration. Synthesize turns all learnings and sources into
// the final report.
//
// Accumulator reset points:
//
//	all_questions_and_answers  run scope, appended during Clarify
//	all_learnings              run scope, appended per search result
//	all_urls                   run scope, appended per search result
//	all_iteration_followups    reset at the start of every depth iteration
package research
