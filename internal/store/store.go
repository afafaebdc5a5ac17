// internal/store/store.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"opportunity-engine/internal/common/logger"
	"opportunity-engine/internal/models"
)

const contributionLimit = 3

var (
	ErrQueryFailed  = errors.New("QUERY_EXECUTION_FAILED")
	ErrLookupFailed = errors.New("LOOKUP_FAILED")
	ErrNoMatch      = errors.New("NO_MATCH")
)

type Config struct {
	// LookupTimeout bounds each per-row enrichment lookup.
	LookupTimeout time.Duration
}

// Store reads scored entities, feature contributions and business context
// from the record store. All queries use bound parameters.
type Store struct {
	config *Config
	db     *sql.DB
	logger logger.Logger
}

func New(config *Config, db *sql.DB, log logger.Logger) *Store {
	if config.LookupTimeout == 0 {
		config.LookupTimeout = 3 * time.Second
	}
	return &Store{
		config: config,
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// FetchOpportunities runs the composed predicate query and returns rows in
// score-descending order. An empty result is a valid empty slice, not an
// error.
func (s *Store) FetchOpportunities(ctx context.Context, userID string, kind models.OpportunityKind, topN int, filters models.Filters) ([]models.ScoredEntity, error) {
	query, args := NewOpportunityQuery(userID, kind, topN, filters).SQL()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer rows.Close()

	var results []models.ScoredEntity
	for rows.Next() {
		var e models.ScoredEntity
		var kindStr string
		if err := rows.Scan(
			&e.AccountID, &e.AccountName,
			&e.ProductID, &e.ProductName,
			&e.Score, &kindStr,
			&e.Segment, &e.Territory,
		); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
		}
		e.Kind = models.OpportunityKind(kindStr)
		results = append(results, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	return results, nil
}

// FetchTopContributions returns up to three feature contributions for the
// pair, ordered by descending absolute weight.
func (s *Store) FetchTopContributions(ctx context.Context, accountID, productID string) ([]models.FeatureContribution, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.LookupTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT feature_name, shap_value
		FROM shap_values
		WHERE account_id = $1 AND product_id = $2
		ORDER BY ABS(shap_value) DESC
		LIMIT $3`, accountID, productID, contributionLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer rows.Close()

	var contributions []models.FeatureContribution
	for rows.Next() {
		var c models.FeatureContribution
		if err := rows.Scan(&c.FeatureName, &c.Weight); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
		}
		contributions = append(contributions, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	return contributions, nil
}

// FetchBusinessContext returns the context narrative for the pair, or an
// empty string when none exists. Absence is not an error.
func (s *Store) FetchBusinessContext(ctx context.Context, accountID, productID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.LookupTimeout)
	defer cancel()

	var contextText string
	err := s.db.QueryRowContext(ctx, `
		SELECT context_text
		FROM business_context
		WHERE account_id = $1 AND product_id = $2
		LIMIT 1`, accountID, productID).Scan(&contextText)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	return contextText, nil
}

// FetchNamePair resolves an (account, product) identifier pair to its display
// names. The best-scored pairing wins when several exist. ErrNoMatch signals
// that no such pair is known.
func (s *Store) FetchNamePair(ctx context.Context, accountID, productID string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.LookupTimeout)
	defer cancel()

	var accountName, productName string
	err := s.db.QueryRowContext(ctx, `
		SELECT account_name, product_name
		FROM model_scores
		WHERE account_id = $1 AND product_id = $2
		ORDER BY score DESC
		LIMIT 1`, accountID, productID).Scan(&accountName, &productName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNoMatch
	}
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	return accountName, productName, nil
}
