package output

// RunEvent is one JSON line emitted by "run --json".
type RunEvent struct {
	Event     string `json:"event"` // run_start, stage_start, stage_complete, run_complete
	RunID     string `json:"run_id,omitempty"`
	Timestamp string `json:"timestamp"`

	Stage     string `json:"stage,omitempty"`
	Status    string `json:"status,omitempty"`
	Detail    string `json:"detail,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms,omitempty"`

	// run_start
	SourceDir string   `json:"source_dir,omitempty"`
	Datasets  []string `json:"datasets,omitempty"`
	Database  string   `json:"database,omitempty"`

	// run_complete
	ReportPath string            `json:"report_path,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Error      string            `json:"error,omitempty"`
	TotalMS    int64             `json:"total_ms,omitempty"`
}
