package model

// HeuristicResult is the outcome of the lexical, domain and formatting checks
type HeuristicResult struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
	// DomainDelta is the domain check's share of Score (+40, -40 or 0)
	DomainDelta int `json:"domainDelta"`
}
