package filings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreditAssessment is one entry in a company's credit assessment history.
// Component scores are 1-10, the overall score 1-100; those ranges are
// enforced by the schema.
type CreditAssessment struct {
	ID             int64
	Ticker         string
	AssessmentDate time.Time

	LiquidityScore     *int
	LeverageScore      *int
	ProfitabilityScore *int
	OverallCreditScore *int
	CreditRating       string
	Recommendation     string

	RiskSummary           string
	AnalystNotes          string
	ComplianceCheckPassed bool

	CreatedAt time.Time
}

// AddAssessment appends an assessment to a ticker's history. A score outside
// the schema's range fails with ErrScoreOutOfRange.
func (s *Store) AddAssessment(ctx context.Context, assessment *CreditAssessment) error {
	if assessment.Ticker == "" {
		return errors.New("ticker is required")
	}

	now := time.Now().UTC()
	assessedAt := assessment.AssessmentDate
	if assessedAt.IsZero() {
		assessedAt = now
	}

	compliance := 0
	if assessment.ComplianceCheckPassed {
		compliance = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_assessments
			(ticker, assessment_date, liquidity_score, leverage_score,
			 profitability_score, overall_credit_score, credit_rating,
			 recommendation, risk_summary, analyst_notes,
			 compliance_check_passed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		assessment.Ticker, assessedAt.UTC().Format(time.RFC3339),
		assessment.LiquidityScore, assessment.LeverageScore,
		assessment.ProfitabilityScore, assessment.OverallCreditScore,
		assessment.CreditRating, assessment.Recommendation,
		assessment.RiskSummary, assessment.AnalystNotes,
		compliance, now.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "CHECK constraint failed") {
			return fmt.Errorf("%w: %s", ErrScoreOutOfRange, assessment.Ticker)
		}
		return fmt.Errorf("adding assessment for %s: %w", assessment.Ticker, err)
	}
	return nil
}

// LatestAssessment returns the most recent assessment for a ticker.
// Returns ErrNotFound when the ticker has never been assessed.
func (s *Store) LatestAssessment(ctx context.Context, ticker string) (*CreditAssessment, error) {
	assessments, err := s.queryAssessments(ctx, `
		SELECT id, ticker, assessment_date, liquidity_score, leverage_score,
		       profitability_score, overall_credit_score, credit_rating,
		       recommendation, risk_summary, analyst_notes,
		       compliance_check_passed, created_at
		FROM credit_assessments WHERE ticker = ?
		ORDER BY assessment_date DESC, id DESC LIMIT 1`, ticker)
	if err != nil {
		return nil, err
	}
	if len(assessments) == 0 {
		return nil, fmt.Errorf("assessment for %s: %w", ticker, ErrNotFound)
	}
	return assessments[0], nil
}

// AssessmentHistory returns a ticker's assessments, newest first.
func (s *Store) AssessmentHistory(ctx context.Context, ticker string) ([]*CreditAssessment, error) {
	return s.queryAssessments(ctx, `
		SELECT id, ticker, assessment_date, liquidity_score, leverage_score,
		       profitability_score, overall_credit_score, credit_rating,
		       recommendation, risk_summary, analyst_notes,
		       compliance_check_passed, created_at
		FROM credit_assessments WHERE ticker = ?
		ORDER BY assessment_date DESC, id DESC`, ticker)
}

func (s *Store) queryAssessments(ctx context.Context, query string, args ...any) ([]*CreditAssessment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying assessments: %w", err)
	}
	defer rows.Close()

	var assessments []*CreditAssessment
	for rows.Next() {
		var (
			assessment                CreditAssessment
			rating, recommendation    sql.NullString
			riskSummary, analystNotes sql.NullString
			assessmentDate, createdAt string
			compliance                int
		)
		err := rows.Scan(&assessment.ID, &assessment.Ticker, &assessmentDate,
			&assessment.LiquidityScore, &assessment.LeverageScore,
			&assessment.ProfitabilityScore, &assessment.OverallCreditScore,
			&rating, &recommendation, &riskSummary, &analystNotes,
			&compliance, &createdAt)
		if err != nil {
			return nil, err
		}

		assessment.CreditRating = rating.String
		assessment.Recommendation = recommendation.String
		assessment.RiskSummary = riskSummary.String
		assessment.AnalystNotes = analystNotes.String
		assessment.ComplianceCheckPassed = compliance != 0
		assessment.AssessmentDate, _ = time.Parse(time.RFC3339, assessmentDate)
		assessment.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		assessments = append(assessments, &assessment)
	}
	return assessments, rows.Err()
}
