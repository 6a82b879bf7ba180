package models

// ProgressUpdate is the message broadcast over the websocket hub whenever a
// job heartbeat lands or an item settles.
type ProgressUpdate struct {
	JobID    string  `json:"job_id"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"` // percentage, 0-100
	ItemID   int64   `json:"item_id,omitempty"`
	Status   string  `json:"status"`
	Stalled  bool    `json:"stalled,omitempty"`
	Done     bool    `json:"done"`
}
