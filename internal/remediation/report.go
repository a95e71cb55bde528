// Package remediation turns backend accessibility reports into flattened
// fixed/flagged issue lists and reconciles estimated fixes against an
// authoritative re-check of the remediated file.
package remediation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPassed      Status = "passed"
	StatusFailed      Status = "failed"
	StatusManualCheck Status = "manual_check"
)

type RuleResult struct {
	Rule    string `json:"rule"`
	Status  Status `json:"status"`
	Details string `json:"details"`
}

type Summary struct {
	SuccessCount     int `json:"successCount"`
	FailedCount      int `json:"failedCount"`
	ManualCheckCount int `json:"manualCheckCount"`
}

func (s Summary) Total() int {
	return s.SuccessCount + s.FailedCount + s.ManualCheckCount
}

// Report is the analysis payload returned by the backend.
type Report struct {
	FileName          string                 `json:"fileName"`
	FileType          string                 `json:"fileType"`
	Summary           Summary                `json:"summary"`
	Results           []RuleResult           `json:"results"`
	Remediation       map[string]interface{} `json:"remediation,omitempty"`
	DownloadID        string                 `json:"downloadId,omitempty"`
	DocumentProtected bool                   `json:"documentProtected,omitempty"`
	Mock              bool                   `json:"mock,omitempty"`
}

var ErrEmptyReport = errors.New("empty report")

// ParseReport decodes a backend payload. The download id and the protected
// flag may sit at the top level or inside the remediation object.
func ParseReport(data []byte) (*Report, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyReport
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if r.DownloadID == "" {
		if id, ok := r.Remediation["downloadId"].(string); ok {
			r.DownloadID = id
		}
	}
	if !r.DocumentProtected {
		if p, ok := r.Remediation["documentProtected"].(bool); ok {
			r.DocumentProtected = p
		}
	}
	return &r, nil
}

// NormalizeSummary trusts the backend summary only when it is non-zero and
// agrees with the result list. Unknown statuses count as manual checks.
func NormalizeSummary(r Report) Summary {
	if s := r.Summary; s.Total() != 0 && s.Total() == len(r.Results) {
		return s
	}
	var out Summary
	for _, res := range r.Results {
		switch Status(strings.ToLower(strings.TrimSpace(string(res.Status)))) {
		case StatusPassed:
			out.SuccessCount++
		case StatusFailed:
			out.FailedCount++
		default:
			out.ManualCheckCount++
		}
	}
	return out
}
