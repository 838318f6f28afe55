package repository

import (
	"fmt"

	"seeding/internal/lifecycle"
)

// Statuses are stored as short lowercase strings. Nothing outside this
// package sees the encoded form.
var statusNames = map[lifecycle.Status]string{
	lifecycle.StatusPending:          "pending",
	lifecycle.StatusFulfilled:        "fulfilled",
	lifecycle.StatusUnfulfilled:      "unfulfilled",
	lifecycle.StatusExpired:          "expired",
	lifecycle.StatusAbandoned:        "abandoned",
	lifecycle.StatusInProgress:       "in_progress",
	lifecycle.StatusCompleted:        "completed",
	lifecycle.StatusOverdue:          "overdue",
	lifecycle.StatusOverdueCompleted: "overdue_completed",
}

var statusValues = func() map[string]lifecycle.Status {
	out := make(map[string]lifecycle.Status, len(statusNames))
	for status, name := range statusNames {
		out[name] = status
	}
	return out
}()

func encodeStatus(s lifecycle.Status) string {
	return statusNames[s]
}

func encodeStatuses(statuses []lifecycle.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, encodeStatus(s))
	}
	return out
}

func decodeStatus(raw string) (lifecycle.Status, error) {
	status, ok := statusValues[raw]
	if !ok {
		return lifecycle.StatusUnknown, fmt.Errorf("unknown status %q", raw)
	}
	return status, nil
}
