// json_output.go - JSON output support for authramp commands.
//
// Provides a standardized JSON envelope for all commands so log
// collectors and scripts can parse results the same way everywhere.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jeranaias/authramp/internal/tally"
)

// JSONResponse is the standardized response format for all CLI commands.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the ISO8601 timestamp when the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response that still carries data.
func NewJSONErrorResponse(command string, data interface{}, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Data:      data,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write outputs the JSON response to w.
// Human-readable messages should go to stderr when JSON mode is enabled.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND DATA TYPES
// =============================================================================

// VersionData is the JSON output of "version".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// GateData is the JSON output of "gate" and "login".
type GateData struct {
	User     string     `json:"user"`
	Action   string     `json:"action"`
	Admit    bool       `json:"admit"`
	Reason   string     `json:"reason"`
	Count    int        `json:"count"`
	UnlockAt *time.Time `json:"unlock_at,omitempty"`
	Exempt   bool       `json:"exempt,omitempty"`
}

// TallyData describes one user's tally in "status" and "list".
type TallyData struct {
	User          string     `json:"user"`
	Count         int        `json:"count"`
	LastFailure   *time.Time `json:"last_failure,omitempty"`
	UnlockAt      *time.Time `json:"unlock_at,omitempty"`
	Locked        bool       `json:"locked"`
	Remaining     string     `json:"remaining,omitempty"`
	NextFailDelay string     `json:"next_failure_delay,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// ListData is the JSON output of "list".
type ListData struct {
	TallyDir string      `json:"tally_dir"`
	Tallies  []TallyData `json:"tallies"`
	Count    int         `json:"count"`
	Locked   int         `json:"locked"`
}

// ResetData is the JSON output of "reset".
type ResetData struct {
	User   string `json:"user"`
	Result string `json:"result"`
}

// MetricsData is the JSON output of "metrics --output".
type MetricsData struct {
	Output     string `json:"output"`
	Principals int    `json:"principals"`
}

// DoctorCheck is one health check in "doctor" output.
type DoctorCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Fix     string `json:"fix,omitempty"`
}

// DoctorData is the JSON output of "doctor".
type DoctorData struct {
	Checks  []DoctorCheck `json:"checks"`
	Passed  int           `json:"passed"`
	Warned  int           `json:"warned"`
	Failed  int           `json:"failed"`
	Healthy bool          `json:"healthy"`
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// tallyData projects a tally entry for display as of now.
func tallyData(user string, r tally.Record, now time.Time) TallyData {
	d := TallyData{
		User:        user,
		Count:       r.Count,
		LastFailure: timePtr(r.Instant),
	}
	if r.Count == 0 {
		d.LastFailure = nil
	}
	if r.UnlockInstant != nil {
		d.UnlockAt = timePtr(*r.UnlockInstant)
		if now.Before(*r.UnlockInstant) {
			d.Locked = true
			d.Remaining = r.UnlockInstant.Sub(now).Truncate(time.Second).String()
		}
	}
	return d
}
