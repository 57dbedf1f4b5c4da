package studio

// Project identifies a Studio project.
type Project struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ProjectResponse is the response of GET /v1/api/{projectId}.
type ProjectResponse struct {
	Success          bool    `json:"success"`
	Error            string  `json:"error,omitempty"`
	Project          Project `json:"project"`
	DefaultImpulseID *int    `json:"defaultImpulseId"`
}

// BuildJobResponse is the response of POST jobs/build-ondevice-model.
type BuildJobResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	ID      int    `json:"id"`
}

// JobStatus describes a running or finished Studio job. Finished carries
// a timestamp string once the job has completed.
type JobStatus struct {
	ID                 int    `json:"id"`
	Category           string `json:"category"`
	Finished           string `json:"finished,omitempty"`
	FinishedSuccessful *bool  `json:"finishedSuccessful,omitempty"`
}

// JobStatusResponse is the response of GET jobs/{jobId}/status.
type JobStatusResponse struct {
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
	Job     JobStatus `json:"job"`
}
