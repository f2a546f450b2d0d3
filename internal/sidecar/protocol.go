package sidecar

import (
	"bytes"
	"encoding/json"

	"github.com/jaja2302/Palm-counting-AI/internal/events"
)

// Message is one decoded stdout line. Exactly one of Progress and Done is set.
type Message struct {
	Progress *events.ProgressPayload
	Done     *events.DonePayload
}

// wireLine is the union of both line shapes.
type wireLine struct {
	Done          bool   `json:"done"`
	Processed     int    `json:"processed"`
	Total         int    `json:"total"`
	CurrentFile   string `json:"current_file"`
	Status        string `json:"status"`
	AbnormalCount int    `json:"abnormal_count"`
	NormalCount   int    `json:"normal_count"`
	Successful    int    `json:"successful"`
	Failed        int    `json:"failed"`
	OutputFolder  string `json:"output_folder"`
	TotalAbnormal int    `json:"total_abnormal"`
	TotalNormal   int    `json:"total_normal"`
}

// ParseLine decodes one stdout line. Blank lines, partial lines and anything
// that is not a JSON object are reported as not ok and must be skipped.
func ParseLine(line []byte) (Message, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return Message{}, false
	}
	var w wireLine
	if err := json.Unmarshal(line, &w); err != nil {
		return Message{}, false
	}
	if w.Done {
		return Message{Done: &events.DonePayload{
			Done:          true,
			Successful:    w.Successful,
			Failed:        w.Failed,
			Total:         w.Total,
			TotalAbnormal: w.TotalAbnormal,
			TotalNormal:   w.TotalNormal,
		}}, true
	}
	return Message{Progress: &events.ProgressPayload{
		Processed:     w.Processed,
		Total:         w.Total,
		CurrentFile:   w.CurrentFile,
		Status:        w.Status,
		AbnormalCount: w.AbnormalCount,
		NormalCount:   w.NormalCount,
		Successful:    w.Successful,
		Failed:        w.Failed,
		OutputFolder:  w.OutputFolder,
	}}, true
}
