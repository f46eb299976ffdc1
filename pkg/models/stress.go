package models

// StressResult is the outcome of one synthetic CPU workload run.
type StressResult struct {
	DurationMs int64   `json:"duration"`
	Iterations int     `json:"iterations"`
	CPUTimeMs  float64 `json:"cpuTime"`
	Result     float64 `json:"result"`
}
