// internal/store/store_test.go
package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opportunity-engine/internal/common/logger"
	"opportunity-engine/internal/models"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := New(&Config{LookupTimeout: 2 * time.Second}, db, logger.NewTestLogger(t))
	return s, mock
}

func TestStore_FetchOpportunities(t *testing.T) {
	s, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{
		"account_id", "account_name", "product_id", "product_name",
		"score", "opportunity_type", "segment", "territory",
	}).
		AddRow("acc-1", "Acme Corp", "prod-1", "Widget Pro", 0.91, "cross_sell", "manufacturing", "na").
		AddRow("acc-2", "Globex", "prod-1", "Widget Pro", 0.85, "cross_sell", "retail", "emea")

	mock.ExpectQuery(`SELECT account_id, account_name, product_id, product_name, score, opportunity_type, segment, territory FROM model_scores WHERE user_id = \$1 AND opportunity_type = \$2 ORDER BY score DESC LIMIT \$3`).
		WithArgs("u1", "cross_sell", 5).
		WillReturnRows(rows)

	results, err := s.FetchOpportunities(context.Background(), "u1", models.KindCrossSell, 5, models.Filters{})

	assert.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Acme Corp", results[0].AccountName)
	assert.Equal(t, 0.91, results[0].Score)
	assert.Equal(t, models.KindCrossSell, results[0].Kind)
	assert.Equal(t, "Globex", results[1].AccountName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FetchOpportunities_FiltersBound(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`WHERE user_id = \$1 AND opportunity_type = \$2 AND segment = \$3 AND territory = \$4 ORDER BY score DESC LIMIT \$5`).
		WithArgs("u1", "churn_risk", "retail", "apac", 3).
		WillReturnRows(sqlmock.NewRows([]string{
			"account_id", "account_name", "product_id", "product_name",
			"score", "opportunity_type", "segment", "territory",
		}))

	results, err := s.FetchOpportunities(context.Background(), "u1", models.KindChurnRisk, 3, models.Filters{
		Segment:   "retail",
		Territory: "apac",
	})

	assert.NoError(t, err)
	assert.Empty(t, results)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FetchOpportunities_QueryError(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`FROM model_scores`).
		WillReturnError(errors.New("connection reset"))

	_, err := s.FetchOpportunities(context.Background(), "u1", models.KindCrossSell, 5, models.Filters{})
	assert.ErrorIs(t, err, ErrQueryFailed)
}

func TestStore_FetchTopContributions(t *testing.T) {
	s, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{"feature_name", "shap_value"}).
		AddRow("usage_trend", 0.31).
		AddRow("support_tickets", -0.12).
		AddRow("contract_age", 0.05)

	mock.ExpectQuery(`SELECT feature_name, shap_value\s+FROM shap_values\s+WHERE account_id = \$1 AND product_id = \$2\s+ORDER BY ABS\(shap_value\) DESC\s+LIMIT \$3`).
		WithArgs("acc-1", "prod-1", 3).
		WillReturnRows(rows)

	contributions, err := s.FetchTopContributions(context.Background(), "acc-1", "prod-1")

	assert.NoError(t, err)
	require.Len(t, contributions, 3)
	assert.Equal(t, "usage_trend", contributions[0].FeatureName)
	assert.Equal(t, 0.31, contributions[0].Weight)
	assert.Equal(t, -0.12, contributions[1].Weight)
}

func TestStore_FetchTopContributions_Empty(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`FROM shap_values`).
		WithArgs("acc-9", "prod-9", 3).
		WillReturnRows(sqlmock.NewRows([]string{"feature_name", "shap_value"}))

	contributions, err := s.FetchTopContributions(context.Background(), "acc-9", "prod-9")
	assert.NoError(t, err)
	assert.Empty(t, contributions)
}

func TestStore_FetchBusinessContext(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT context_text\s+FROM business_context`).
		WithArgs("acc-1", "prod-1").
		WillReturnRows(sqlmock.NewRows([]string{"context_text"}).AddRow("renewed last quarter"))

	text, err := s.FetchBusinessContext(context.Background(), "acc-1", "prod-1")
	assert.NoError(t, err)
	assert.Equal(t, "renewed last quarter", text)
}

func TestStore_FetchBusinessContext_AbsenceIsNotAnError(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`FROM business_context`).
		WithArgs("acc-1", "prod-1").
		WillReturnRows(sqlmock.NewRows([]string{"context_text"}))

	text, err := s.FetchBusinessContext(context.Background(), "acc-1", "prod-1")
	assert.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestStore_FetchNamePair(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT account_name, product_name\s+FROM model_scores\s+WHERE account_id = \$1 AND product_id = \$2\s+ORDER BY score DESC\s+LIMIT 1`).
		WithArgs("acc-1", "prod-1").
		WillReturnRows(sqlmock.NewRows([]string{"account_name", "product_name"}).
			AddRow("Acme Corp", "Widget Pro"))

	account, product, err := s.FetchNamePair(context.Background(), "acc-1", "prod-1")
	assert.NoError(t, err)
	assert.Equal(t, "Acme Corp", account)
	assert.Equal(t, "Widget Pro", product)
}

func TestStore_FetchNamePair_NoMatch(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectQuery(`FROM model_scores`).
		WithArgs("acc-x", "prod-x").
		WillReturnRows(sqlmock.NewRows([]string{"account_name", "product_name"}))

	_, _, err := s.FetchNamePair(context.Background(), "acc-x", "prod-x")
	assert.ErrorIs(t, err, ErrNoMatch)
}
