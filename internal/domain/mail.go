package domain

const MailTypeRunFinished = "run_finished"

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type RunFinishedMailData struct {
	RunID       string    `json:"runID"`
	Status      RunStatus `json:"status"`
	Generations int       `json:"generations"`
	Fitness     float64   `json:"fitness"`
	HardPenalty int       `json:"hardPenalty"`
	SoftPenalty float64   `json:"softPenalty"`
	Error       string    `json:"error"`
}
