package models

// InfoSnapshot describes the running process, host and deployment.
type InfoSnapshot struct {
	Service       string `json:"service"`
	Revision      string `json:"revision"`
	Configuration string `json:"configuration"`
	Region        string `json:"region,omitempty"`
	ProjectID     string `json:"projectId,omitempty"`
	Memory        string `json:"memory,omitempty"`
	CPU           string `json:"cpu,omitempty"`
	Timestamp     string `json:"timestamp"`
	Hostname      string `json:"hostname"`
	Platform      string `json:"platform"`
	CPUs          int    `json:"cpus"`
	TotalMemory   string `json:"totalMemory"`
	FreeMemory    string `json:"freeMemory"`
}
