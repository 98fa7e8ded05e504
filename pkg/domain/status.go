package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the outcome of ticking a node.
type Status uint8

const (
	// Undefined is the status of a node that was never ticked.
	Undefined Status = iota
	// Running means the node needs more ticks to finish its round.
	Running
	// Success terminates the round successfully.
	Success
	// Failure terminates the round unsuccessfully.
	Failure
)

var statusNames = [...]string{"UNDEFINED", "RUNNING", "SUCCESS", "FAILURE"}

// String returns the upper-case name of the status.
func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Short returns the single-letter form used by visualizers (U/R/S/F).
func (s Status) Short() string {
	if int(s) < len(statusNames) {
		return statusNames[s][:1]
	}
	return "?"
}

// IsTerminal reports whether s ends a round.
func (s Status) IsTerminal() bool {
	return s == Success || s == Failure
}

// ParseStatus converts a status name (case-insensitive) back into a Status.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if strings.EqualFold(n, name) {
			return Status(i), nil
		}
	}
	return Undefined, fmt.Errorf("unknown status %q", name)
}

// MarshalJSON encodes the status by name.
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
