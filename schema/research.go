package schema

import "strings"

// Contract names used by the deep research workflow.
const (
	ClarifyingQuestionsName = "clarifying_questions"
	ReportTitleName         = "report_title"
	SERPQueriesName         = "serp_queries"
	LearningsName           = "learnings"
	ReportName              = "research_report"
)

func init() {
	Register[ClarifyingQuestions](ClarifyingQuestionsName)
	Register[ReportTitle](ReportTitleName)
	Register[SERPQueries](SERPQueriesName)
	Register[Learnings](LearningsName)
	Register[Report](ReportName)
}

// ClarifyingQuestions holds up to five questions asked before research starts.
type ClarifyingQuestions struct {
	Questions []string `json:"questions" jsonschema:"maxItems=5,description=Questions that narrow the research topic"`
}

func (c *ClarifyingQuestions) Validate() error { return nil }

// ReportTitle names the final report.
type ReportTitle struct {
	Title       string `json:"title" jsonschema:"description=Short report title"`
	Description string `json:"description" jsonschema:"description=One sentence describing the report"`
}

func (r *ReportTitle) Validate() error { return nil }

// SERPQueries is a set of search queries, each paired with its research goal.
type SERPQueries struct {
	Queries       []string `json:"queries" jsonschema:"maxItems=10,description=Search engine queries"`
	ResearchGoals []string `json:"research_goals" jsonschema:"maxItems=10,description=Goal of the query at the same index"`
}

func (s *SERPQueries) Validate() error {
	return Aligned(SERPQueriesName,
		Field{"queries", len(s.Queries)},
		Field{"research_goals", len(s.ResearchGoals)},
	)
}

// SERPQuery is one zipped (query, goal) record.
type SERPQuery struct {
	Query string
	Goal  string
}

// Items zips the aligned arrays. Call only after Validate succeeded.
func (s *SERPQueries) Items() []SERPQuery {
	out := make([]SERPQuery, len(s.Queries))
	for i := range s.Queries {
		out[i] = SERPQuery{Query: strings.TrimSpace(s.Queries[i]), Goal: strings.TrimSpace(s.ResearchGoals[i])}
	}
	return out
}

// Learnings condenses one search result.
type Learnings struct {
	Learnings         []string `json:"learnings" jsonschema:"maxItems=3,description=Distinct facts learned from the results"`
	FollowUpQuestions []string `json:"follow_up_questions" jsonschema:"maxItems=3,description=Questions worth researching next"`
	Sources           []string `json:"sources" jsonschema:"maxItems=10,description=URLs the learnings came from"`
}

func (l *Learnings) Validate() error { return nil }

// Report is the synthesized research report.
type Report struct {
	ReportMarkdown string   `json:"report_markdown" jsonschema:"description=Full report in markdown"`
	Sources        []string `json:"sources" jsonschema:"description=Every URL cited in the report"`
}

func (r *Report) Validate() error { return nil }
