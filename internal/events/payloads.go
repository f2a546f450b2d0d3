package events

import "math"

// PackProgressPayload is the body of ai-pack-progress.
type PackProgressPayload struct {
	Downloaded uint64 `json:"downloaded"`
	Total      uint64 `json:"total"`
	Percent    uint64 `json:"percent"`
}

// PackPausedPayload is the body of ai-pack-paused.
type PackPausedPayload struct {
	Downloaded uint64 `json:"downloaded"`
	Total      uint64 `json:"total"`
}

// PackExtractingPayload is the body of ai-pack-extracting.
type PackExtractingPayload struct {
	Total int `json:"total"`
}

// PackExtractProgressPayload is the body of ai-pack-extract-progress.
type PackExtractProgressPayload struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Percent uint64 `json:"percent"`
}

// ProgressPayload is emitted once per file processed by the sidecar. The
// field set mirrors the sidecar's stdout progress line.
type ProgressPayload struct {
	Processed     int    `json:"processed"`
	Total         int    `json:"total"`
	CurrentFile   string `json:"current_file"`
	Status        string `json:"status"`
	AbnormalCount int    `json:"abnormal_count"`
	NormalCount   int    `json:"normal_count"`
	Successful    int    `json:"successful"`
	Failed        int    `json:"failed"`
	OutputFolder  string `json:"output_folder,omitempty"`
}

// DonePayload is the terminal processing-done body.
type DonePayload struct {
	Done          bool `json:"done"`
	Successful    int  `json:"successful"`
	Failed        int  `json:"failed"`
	Total         int  `json:"total"`
	TotalAbnormal int  `json:"total_abnormal"`
	TotalNormal   int  `json:"total_normal"`
}

// Percent returns round(min(100, done/total*100)), or 0 when total is 0.
func Percent(done, total uint64) uint64 {
	if total == 0 {
		return 0
	}
	p := math.Round(float64(done) / float64(total) * 100)
	if p > 100 {
		return 100
	}
	return uint64(p)
}
