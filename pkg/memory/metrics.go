package memory

// UtilizationReport summarizes read/write behavior derived from a store's
// access log.
type UtilizationReport struct {
	ReadWriteRatio  float64 `json:"read_write_ratio"`
	TotalOperations int     `json:"total_operations"`
	UniqueAgents    int     `json:"unique_agents"`
	AvgOpsPerAgent  float64 `json:"avg_ops_per_agent"`
}

// RedundancyReduction returns the percentage of retrieve calls that found at
// least one result. The access log is the sole input.
func RedundancyReduction(log []AccessRecord) float64 {
	retrieves, hits := 0, 0
	for _, rec := range log {
		if rec.Operation != "retrieve" {
			continue
		}
		retrieves++
		if n, ok := rec.Details["results_found"].(int); ok && n > 0 {
			hits++
		}
	}
	if retrieves == 0 {
		return 0
	}
	return float64(hits) / float64(retrieves) * 100
}

// KnowledgeReuseRate returns the percentage of retrieve calls whose results
// crossed agent identity boundaries.
func KnowledgeReuseRate(log []AccessRecord) float64 {
	retrieves, crossed := 0, 0
	for _, rec := range log {
		if rec.Operation != "retrieve" {
			continue
		}
		retrieves++
		if v, ok := rec.Details["cross_agent_access"].(bool); ok && v {
			crossed++
		}
	}
	if retrieves == 0 {
		return 0
	}
	return float64(crossed) / float64(retrieves) * 100
}

// Utilization derives read/write ratios and per-agent operation counts from
// aggregated access stats.
func Utilization(stats AccessStats) UtilizationReport {
	reads := stats.Operations["retrieve"]
	writes := stats.Operations["store"]

	report := UtilizationReport{
		TotalOperations: reads + writes,
		UniqueAgents:    len(stats.Agents),
	}
	if writes > 0 {
		report.ReadWriteRatio = float64(reads) / float64(writes)
	}
	if len(stats.Agents) > 0 {
		report.AvgOpsPerAgent = float64(report.TotalOperations) / float64(len(stats.Agents))
	}
	return report
}
