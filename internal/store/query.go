// internal/store/query.go
package store

import (
	"fmt"
	"strings"

	"opportunity-engine/internal/models"
)

// Predicate is one bound equality constraint on the scored-entity table.
type Predicate struct {
	Column string
	Value  interface{}
}

// OpportunityQuery composes a read query over model_scores. Filter values are
// always bound parameters; they never appear in the query text.
type OpportunityQuery struct {
	predicates []Predicate
	limit      int
}

// NewOpportunityQuery builds the predicate set: user and opportunity type
// unconditionally, then one equality predicate per supplied optional filter.
// Omitted filters impose no constraint.
func NewOpportunityQuery(userID string, kind models.OpportunityKind, topN int, filters models.Filters) *OpportunityQuery {
	q := &OpportunityQuery{limit: topN}
	q.predicates = append(q.predicates,
		Predicate{Column: "user_id", Value: userID},
		Predicate{Column: "opportunity_type", Value: string(kind)},
	)
	if filters.ProductID != "" {
		q.predicates = append(q.predicates, Predicate{Column: "product_id", Value: filters.ProductID})
	}
	if filters.Segment != "" {
		q.predicates = append(q.predicates, Predicate{Column: "segment", Value: filters.Segment})
	}
	if filters.Territory != "" {
		q.predicates = append(q.predicates, Predicate{Column: "territory", Value: filters.Territory})
	}
	if filters.AccountID != "" {
		q.predicates = append(q.predicates, Predicate{Column: "account_id", Value: filters.AccountID})
	}
	return q
}

// Predicates exposes the composed predicate list for inspection.
func (q *OpportunityQuery) Predicates() []Predicate {
	return q.predicates
}

// SQL renders the query text with $n placeholders and the matching argument
// list. Ordering is score descending; ties keep store order.
func (q *OpportunityQuery) SQL() (string, []interface{}) {
	var sb strings.Builder
	args := make([]interface{}, 0, len(q.predicates)+1)

	sb.WriteString(`SELECT account_id, account_name, product_id, product_name, score, opportunity_type, segment, territory FROM model_scores`)
	for i, p := range q.predicates {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		args = append(args, p.Value)
		fmt.Fprintf(&sb, "%s = $%d", p.Column, len(args))
	}
	args = append(args, q.limit)
	fmt.Fprintf(&sb, " ORDER BY score DESC LIMIT $%d", len(args))

	return sb.String(), args
}
