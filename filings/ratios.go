package filings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FinancialRatios holds one fiscal year's calculated ratios for a company.
// Ratio fields are pointers because any of them can be uncomputable for a
// given filing (missing line items divide by zero or are absent entirely).
type FinancialRatios struct {
	ID              int64
	Ticker          string
	FiscalYear      int
	CalculationDate time.Time

	// Liquidity
	CurrentRatio *float64
	QuickRatio   *float64
	CashRatio    *float64

	// Leverage
	DebtToEquity     *float64
	DebtToAssets     *float64
	InterestCoverage *float64

	// Profitability
	GrossMargin     *float64
	OperatingMargin *float64
	NetMargin       *float64
	ReturnOnAssets  *float64
	ReturnOnEquity  *float64

	// Credit metrics
	AltmanZScore *float64

	CreatedAt time.Time
}

// SaveRatios records a ratio calculation. Each call appends a new row, so the
// calculation history for a ticker and year is preserved.
func (s *Store) SaveRatios(ctx context.Context, ratios *FinancialRatios) error {
	if ratios.Ticker == "" {
		return errors.New("ticker is required")
	}

	now := time.Now().UTC()
	calculatedAt := ratios.CalculationDate
	if calculatedAt.IsZero() {
		calculatedAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO financial_ratios
			(ticker, fiscal_year, calculation_date,
			 current_ratio, quick_ratio, cash_ratio,
			 debt_to_equity, debt_to_assets, interest_coverage,
			 gross_margin, operating_margin, net_margin,
			 return_on_assets, return_on_equity, altman_z_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ratios.Ticker, ratios.FiscalYear, calculatedAt.UTC().Format(time.RFC3339),
		ratios.CurrentRatio, ratios.QuickRatio, ratios.CashRatio,
		ratios.DebtToEquity, ratios.DebtToAssets, ratios.InterestCoverage,
		ratios.GrossMargin, ratios.OperatingMargin, ratios.NetMargin,
		ratios.ReturnOnAssets, ratios.ReturnOnEquity, ratios.AltmanZScore,
		now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving ratios for %s: %w", ratios.Ticker, err)
	}
	return nil
}

// LatestRatios returns the most recently calculated ratios for a ticker.
// Returns ErrNotFound when no calculation has been recorded.
func (s *Store) LatestRatios(ctx context.Context, ticker string) (*FinancialRatios, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ticker, fiscal_year, calculation_date,
		       current_ratio, quick_ratio, cash_ratio,
		       debt_to_equity, debt_to_assets, interest_coverage,
		       gross_margin, operating_margin, net_margin,
		       return_on_assets, return_on_equity, altman_z_score, created_at
		FROM financial_ratios WHERE ticker = ?
		ORDER BY calculation_date DESC, id DESC LIMIT 1`, ticker)

	ratios, err := scanRatios(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ratios for %s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading ratios for %s: %w", ticker, err)
	}
	return ratios, nil
}

func scanRatios(row rowScanner) (*FinancialRatios, error) {
	var (
		ratios                     FinancialRatios
		calculationDate, createdAt string
	)
	err := row.Scan(&ratios.ID, &ratios.Ticker, &ratios.FiscalYear, &calculationDate,
		&ratios.CurrentRatio, &ratios.QuickRatio, &ratios.CashRatio,
		&ratios.DebtToEquity, &ratios.DebtToAssets, &ratios.InterestCoverage,
		&ratios.GrossMargin, &ratios.OperatingMargin, &ratios.NetMargin,
		&ratios.ReturnOnAssets, &ratios.ReturnOnEquity, &ratios.AltmanZScore,
		&createdAt)
	if err != nil {
		return nil, err
	}

	ratios.CalculationDate, _ = time.Parse(time.RFC3339, calculationDate)
	ratios.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &ratios, nil
}
