package dialogue

import "strings"

// Intent is the conversation class assigned to a single inbound message.
type Intent string

const (
	IntentTechnical  Intent = "technical"
	IntentBooking    Intent = "booking"
	IntentEscalation Intent = "escalation"
	IntentGeneral    Intent = "general"
)

// IntentDecision is the router's per-message output. Only Vehicle outlives
// the turn, by being written back into the session.
type IntentDecision struct {
	Intent     Intent
	Vehicle    string // partition id, "" when unresolved
	Confidence float64
}

// Supported vehicle models mapped to their manual partitions. The keyword is
// what customers actually type; the partition is the knowledge-base namespace.
var vehiclePartitions = []struct {
	keyword   string
	partition string
	display   string
}{
	{"civic", "civic-2025", "Civic"},
	{"ridgeline", "ridgeline-2025", "Ridgeline"},
	{"passport", "passport-2026", "Passport"},
}

// detectVehicle finds a supported vehicle mentioned in the text. When several
// models appear, the most recently mentioned one (rightmost in the raw text)
// wins.
func detectVehicle(text string) string {
	lower := strings.ToLower(text)
	best := ""
	bestPos := -1
	for _, v := range vehiclePartitions {
		if pos := strings.LastIndex(lower, v.keyword); pos > bestPos {
			bestPos = pos
			best = v.partition
		}
	}
	return best
}

// isVehiclePartition reports whether s names a supported partition.
func isVehiclePartition(s string) bool {
	for _, v := range vehiclePartitions {
		if v.partition == s {
			return true
		}
	}
	return false
}

// vehicleDisplay renders a partition id as a customer-facing model name.
func vehicleDisplay(partition string) string {
	for _, v := range vehiclePartitions {
		if v.partition == partition {
			return v.display
		}
	}
	return partition
}

// vehicleChoices lists the supported model names for prompting the user.
func vehicleChoices() string {
	names := make([]string, len(vehiclePartitions))
	for i, v := range vehiclePartitions {
		names[i] = v.display
	}
	return strings.Join(names, ", ")
}
