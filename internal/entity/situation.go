package entity

// TaskAnalysis is the deterministic reading of the task text itself.
type TaskAnalysis struct {
	Intent             []string `json:"intent"`
	Complexity         string   `json:"complexity"`
	WordCount          int      `json:"word_count"`
	HasURL             bool     `json:"has_url"`
	HasSpecificElement bool     `json:"has_specific_element"`
}

// PageAnalysis classifies the current page from the captured context.
type PageAnalysis struct {
	Type                     string         `json:"type"`
	State                    string         `json:"state"`
	InteractiveElementsCount int            `json:"interactive_elements_count"`
	ElementTypes             map[string]int `json:"element_types"`
	HasForms                 bool           `json:"has_forms"`
	HasLinks                 bool           `json:"has_links"`
	HasImages                bool           `json:"has_images"`
	URLDomain                string         `json:"url_domain"`
}

// ContextualRelevance measures how much of the page relates to the task.
// RelevanceScore is always within [0,1].
type ContextualRelevance struct {
	RelevanceScore   float64  `json:"relevance_score"`
	RelevantElements []string `json:"relevant_elements"`
}

// SituationAnalysis combines the deterministic task/page/relevance reading
// with an optional model-generated qualitative judgment. Derived fresh per
// planning decision; never persisted. The JSON form is echoed back to the
// model inside planning prompts.
type SituationAnalysis struct {
	TaskAnalysis        TaskAnalysis        `json:"task_analysis"`
	PageAnalysis        PageAnalysis        `json:"page_analysis"`
	ContextualRelevance ContextualRelevance `json:"contextual_relevance"`
	RecommendedApproach string              `json:"recommended_approach"`
	PotentialObstacles  []string            `json:"potential_obstacles"`
	SuccessIndicators   []string            `json:"success_indicators"`
	ConfidenceLevel     float64             `json:"confidence_level"`
	PageType            string              `json:"page_type"`
	Reasoning           string              `json:"reasoning"`
}
