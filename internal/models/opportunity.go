// internal/models/opportunity.go
package models

// OpportunityKind classifies a scored row as a recommendation or a risk.
type OpportunityKind string

const (
	KindCrossSell OpportunityKind = "cross_sell"
	KindUpsell    OpportunityKind = "upsell"
	KindProspect  OpportunityKind = "prospect"
	KindChurnRisk OpportunityKind = "churn_risk"
)

// ParseOpportunityKind maps a raw string onto a known kind.
func ParseOpportunityKind(raw string) (OpportunityKind, bool) {
	switch OpportunityKind(raw) {
	case KindCrossSell, KindUpsell, KindProspect, KindChurnRisk:
		return OpportunityKind(raw), true
	}
	return "", false
}

// IsRecommendation reports whether the kind is a sell-side opportunity
// (as opposed to a churn risk).
func (k OpportunityKind) IsRecommendation() bool {
	return k == KindCrossSell || k == KindUpsell || k == KindProspect
}

// ScoredEntity is one row of the model_scores table: an (account, product)
// pairing with its model score. Immutable once fetched.
type ScoredEntity struct {
	AccountID   string          `json:"accountId"`
	AccountName string          `json:"account"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"product"`
	Score       float64         `json:"score"`
	Kind        OpportunityKind `json:"opportunity_type"`
	Segment     string          `json:"segment"`
	Territory   string          `json:"territory"`
}

// FeatureContribution is one named score driver with its signed weight.
type FeatureContribution struct {
	FeatureName string  `json:"feature_name"`
	Weight      float64 `json:"weight"`
}

// Filters narrows an opportunity query. Empty fields impose no constraint.
type Filters struct {
	ProductID string
	Segment   string
	Territory string
	AccountID string
}

// EnrichedOpportunity is a ScoredEntity plus interpretability data and
// generated narrative. Request-scoped, never persisted.
type EnrichedOpportunity struct {
	Account     string                `json:"account"`
	Product     string                `json:"product"`
	Score       float64               `json:"score"`
	Kind        OpportunityKind       `json:"opportunity_type"`
	Segment     string                `json:"segment"`
	Territory   string                `json:"territory"`
	TopFeatures []FeatureContribution `json:"top_features,omitempty"`
	Context     string                `json:"-"`
	Explanation string                `json:"explanation"`
	NextAction  string                `json:"next_action,omitempty"`
}

// Summary pairs the user's best opportunities with their worst risks.
type Summary struct {
	TopOpportunities []EnrichedOpportunity `json:"top_opportunities"`
	TopRisks         []EnrichedOpportunity `json:"top_risks"`
}

// Pitch is a generated sales pitch for one (account, product) pair.
type Pitch struct {
	Account string `json:"account"`
	Product string `json:"product"`
	Pitch   string `json:"pitch"`
}
