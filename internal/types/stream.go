package types

// Message types of an NDJSON search stream.
const (
	MessageProgress = "progress"
	MessageMatch    = "match"
	MessageResult   = "result"
	MessageError    = "error"
	MessageEnd      = "end"
)

// Summary closes a search stream and describes how it finished.
type Summary struct {
	State     string `json:"state"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Records   int    `json:"records"`
	Matches   int    `json:"matches"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// StreamMessage is one line of an NDJSON search stream. Exactly one payload
// field is set, chosen by Type. A stream carries progress messages, then
// either match messages or a single result message, then one end message.
// An error message replaces everything after the failure point.
type StreamMessage struct {
	Type    string         `json:"type"`
	Event   *ProgressEvent `json:"event,omitempty"`
	Record  *ResultRecord  `json:"record,omitempty"`
	Records []ResultRecord `json:"records,omitempty"`
	Summary *Summary       `json:"summary,omitempty"`
	Error   string         `json:"error,omitempty"`
	// Kind classifies an error: "pattern", "glob", "io", "busy" or "internal".
	Kind string `json:"kind,omitempty"`
}
