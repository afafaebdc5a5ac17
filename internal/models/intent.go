// internal/models/intent.go
package models

// IntentKind is the structured interpretation of a chat message. Anything the
// classifier emits that is not a known kind collapses to IntentUnknown.
type IntentKind string

const (
	IntentTopOpportunities  IntentKind = "top_opportunities"
	IntentChurnRisk         IntentKind = "churn_risk"
	IntentSummary           IntentKind = "summary"
	IntentPersonalizedPitch IntentKind = "personalized_pitch"
	IntentUnknown           IntentKind = "unknown"
)

// NormalizeIntentKind maps raw classifier output onto a supported kind,
// defaulting to IntentUnknown.
func NormalizeIntentKind(raw string) IntentKind {
	switch IntentKind(raw) {
	case IntentTopOpportunities, IntentChurnRisk, IntentSummary, IntentPersonalizedPitch:
		return IntentKind(raw)
	}
	return IntentUnknown
}

// Intent is a classified chat turn with its extracted parameters. Absent
// string parameters are empty; absent TopN is zero.
type Intent struct {
	Kind            IntentKind
	OpportunityType string
	Product         string
	Account         string
	Segment         string
	Territory       string
	TopN            int
}

// ChatTurn is one prior message in a conversation. History is owned by the
// caller; the router only reads it.
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"content"`
}
