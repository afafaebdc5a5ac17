// internal/store/query_test.go
package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"opportunity-engine/internal/models"
)

func predicateColumns(q *OpportunityQuery) []string {
	cols := make([]string, 0, len(q.Predicates()))
	for _, p := range q.Predicates() {
		cols = append(cols, p.Column)
	}
	return cols
}

func TestOpportunityQuery_MandatoryPredicatesOnly(t *testing.T) {
	q := NewOpportunityQuery("u1", models.KindCrossSell, 5, models.Filters{})

	assert.Equal(t, []string{"user_id", "opportunity_type"}, predicateColumns(q))

	sql, args := q.SQL()
	assert.Equal(t,
		`SELECT account_id, account_name, product_id, product_name, score, opportunity_type, segment, territory FROM model_scores WHERE user_id = $1 AND opportunity_type = $2 ORDER BY score DESC LIMIT $3`,
		sql)
	assert.Equal(t, []interface{}{"u1", "cross_sell", 5}, args)
}

func TestOpportunityQuery_AllOptionalFilters(t *testing.T) {
	q := NewOpportunityQuery("u1", models.KindUpsell, 10, models.Filters{
		ProductID: "prod-1",
		Segment:   "healthcare",
		Territory: "emea",
		AccountID: "acc-1",
	})

	assert.Equal(t, []string{
		"user_id", "opportunity_type", "product_id", "segment", "territory", "account_id",
	}, predicateColumns(q))

	sql, args := q.SQL()
	assert.Contains(t, sql, "product_id = $3")
	assert.Contains(t, sql, "segment = $4")
	assert.Contains(t, sql, "territory = $5")
	assert.Contains(t, sql, "account_id = $6")
	assert.Contains(t, sql, "ORDER BY score DESC LIMIT $7")
	assert.Equal(t, []interface{}{"u1", "upsell", "prod-1", "healthcare", "emea", "acc-1", 10}, args)
}

func TestOpportunityQuery_PartialFilters(t *testing.T) {
	tests := []struct {
		name     string
		filters  models.Filters
		expected []string
	}{
		{
			name:     "segment only",
			filters:  models.Filters{Segment: "retail"},
			expected: []string{"user_id", "opportunity_type", "segment"},
		},
		{
			name:     "territory only",
			filters:  models.Filters{Territory: "apac"},
			expected: []string{"user_id", "opportunity_type", "territory"},
		},
		{
			name:     "product and account",
			filters:  models.Filters{ProductID: "p1", AccountID: "a1"},
			expected: []string{"user_id", "opportunity_type", "product_id", "account_id"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewOpportunityQuery("u1", models.KindProspect, 5, tt.filters)
			assert.Equal(t, tt.expected, predicateColumns(q))
		})
	}
}

func TestOpportunityQuery_FilterValuesNeverInQueryText(t *testing.T) {
	q := NewOpportunityQuery("u1", models.KindCrossSell, 5, models.Filters{
		Segment: "'; DROP TABLE model_scores; --",
	})

	sql, args := q.SQL()
	assert.NotContains(t, sql, "DROP TABLE")
	assert.Contains(t, args, "'; DROP TABLE model_scores; --")
}
