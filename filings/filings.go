package filings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Filing is a row of SEC filing metadata.
type Filing struct {
	ID              int64
	Ticker          string
	FilingType      string
	FiscalYear      int
	FiscalPeriod    string
	FilingDate      time.Time
	AccessionNumber string
	DocumentURL     string
	Processed       bool
	CreatedAt       time.Time
}

// AddFiling records a filing. A filing with the same accession number, or the
// same (ticker, fiscal year, fiscal period), fails with ErrDuplicateFiling.
func (s *Store) AddFiling(ctx context.Context, filing *Filing) error {
	if filing.Ticker == "" || filing.AccessionNumber == "" {
		return errors.New("ticker and accession number are required")
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sec_filings
			(ticker, filing_type, fiscal_year, fiscal_period, filing_date,
			 accession_number, document_url, processed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		filing.Ticker, filing.FilingType, filing.FiscalYear, filing.FiscalPeriod,
		filing.FilingDate.UTC().Format(time.RFC3339),
		filing.AccessionNumber, filing.DocumentURL,
		now.Format(time.RFC3339))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicateFiling, filing.AccessionNumber)
		}
		return fmt.Errorf("adding filing %s: %w", filing.AccessionNumber, err)
	}
	return nil
}

// FilingsByTicker returns a ticker's filings, newest filing date first.
func (s *Store) FilingsByTicker(ctx context.Context, ticker string) ([]*Filing, error) {
	return s.queryFilings(ctx, `
		SELECT id, ticker, filing_type, fiscal_year, fiscal_period, filing_date,
		       accession_number, document_url, processed, created_at
		FROM sec_filings WHERE ticker = ? ORDER BY filing_date DESC`, ticker)
}

// UnprocessedFilings returns every filing not yet marked processed, oldest
// filing date first so ingest tooling works forward in time.
func (s *Store) UnprocessedFilings(ctx context.Context) ([]*Filing, error) {
	return s.queryFilings(ctx, `
		SELECT id, ticker, filing_type, fiscal_year, fiscal_period, filing_date,
		       accession_number, document_url, processed, created_at
		FROM sec_filings WHERE processed = 0 ORDER BY filing_date ASC`)
}

// MarkProcessed flags a filing as ingested. Returns ErrNotFound for an
// unknown accession number.
func (s *Store) MarkProcessed(ctx context.Context, accessionNumber string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE sec_filings SET processed = 1 WHERE accession_number = ?", accessionNumber)
	if err != nil {
		return fmt.Errorf("marking filing %s processed: %w", accessionNumber, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("filing %s: %w", accessionNumber, ErrNotFound)
	}
	return nil
}

func (s *Store) queryFilings(ctx context.Context, query string, args ...any) ([]*Filing, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying filings: %w", err)
	}
	defer rows.Close()

	var filings []*Filing
	for rows.Next() {
		var (
			filing                Filing
			documentURL           sql.NullString
			filingDate, createdAt string
			processed             int
		)
		err := rows.Scan(&filing.ID, &filing.Ticker, &filing.FilingType,
			&filing.FiscalYear, &filing.FiscalPeriod, &filingDate,
			&filing.AccessionNumber, &documentURL, &processed, &createdAt)
		if err != nil {
			return nil, err
		}

		filing.DocumentURL = documentURL.String
		filing.Processed = processed != 0
		filing.FilingDate, _ = time.Parse(time.RFC3339, filingDate)
		filing.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		filings = append(filings, &filing)
	}
	return filings, rows.Err()
}
