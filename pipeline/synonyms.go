package pipeline

import "strings"

// conceptGroups maps support-domain concepts to the different ways customers
// phrase them. Used by the fallback planner and to expand planned terms so
// substring matching catches rewordings.
var conceptGroups = map[string][]string{
	"complaint":        {"complaint", "issue", "problem", "concern", "disappointed", "frustrated", "unhappy", "unsatisfied"},
	"refund":           {"refund", "return", "money back", "reimbursement", "credit", "compensation"},
	"quality":          {"quality", "defective", "broken", "malfunction", "faulty", "poor quality", "bad quality"},
	"safety":           {"safety", "unsafe", "dangerous", "hazard", "risk", "harmful"},
	"shipping":         {"shipping", "delivery", "shipped", "tracking", "package", "mail"},
	"battery":          {"battery", "charge", "charging", "power", "dead battery", "low battery"},
	"gps":              {"gps", "location", "tracking", "coordinates", "position", "map"},
	"app":              {"app", "application", "software", "mobile", "phone", "device"},
	"customer_service": {"customer service", "support", "help", "assistance", "agent", "representative"},
	"cancel":           {"cancel", "cancellation", "unsubscribe", "terminate", "close account"},
}

// ExpandTerm returns synonym expansions for a term: the members of every
// concept group the term belongs to, excluding the term itself. The result
// order is deterministic (group member order, groups in a fixed pass).
func ExpandTerm(term string) []string {
	lower := strings.ToLower(term)

	var expansions []string
	seen := map[string]struct{}{lower: {}}

	// Iterate groups through a fixed key order for determinism.
	for _, concept := range conceptOrder {
		group := conceptGroups[concept]
		member := false
		for _, t := range group {
			if t == lower {
				member = true
				break
			}
		}
		if !member {
			continue
		}
		for _, t := range group {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			expansions = append(expansions, t)
		}
	}
	return expansions
}

var conceptOrder = []string{
	"complaint", "refund", "quality", "safety", "shipping",
	"battery", "gps", "app", "customer_service", "cancel",
}
