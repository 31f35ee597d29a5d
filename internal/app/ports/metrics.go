package ports

// RoundMetrics records per-round arbitration outcomes for the KPI surface.
type RoundMetrics interface {
	RecordRound(allocations, conflicts, skipped int)
	RecordDecisionTimeout()
	RecordDecisionFailure()
	RecordArchiveFailure()
}
