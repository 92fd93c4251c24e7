package filings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Company is a row in the company master table.
type Company struct {
	ID        int64
	Ticker    string
	Name      string
	CIK       string
	SICCode   string
	Industry  string
	Sector    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertCompany inserts the company or, when the ticker already exists,
// refreshes its mutable fields. The company's ID and timestamps are filled in
// on return.
func (s *Store) UpsertCompany(ctx context.Context, company *Company) error {
	if company.Ticker == "" || company.Name == "" || company.CIK == "" {
		return errors.New("ticker, name and cik are required")
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (ticker, name, cik, sic_code, industry, sector, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker) DO UPDATE SET
			name = excluded.name,
			cik = excluded.cik,
			sic_code = excluded.sic_code,
			industry = excluded.industry,
			sector = excluded.sector,
			updated_at = excluded.updated_at`,
		company.Ticker, company.Name, company.CIK,
		company.SICCode, company.Industry, company.Sector,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upserting company %s: %w", company.Ticker, err)
	}

	stored, err := s.GetCompany(ctx, company.Ticker)
	if err != nil {
		return err
	}
	*company = *stored
	return nil
}

// GetCompany looks up a company by ticker. Returns ErrNotFound when absent.
func (s *Store) GetCompany(ctx context.Context, ticker string) (*Company, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, ticker, name, cik, sic_code, industry, sector, created_at, updated_at
		FROM companies WHERE ticker = ?`, ticker)

	company, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %s: %w", ticker, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up company %s: %w", ticker, err)
	}
	return company, nil
}

// ListCompanies returns all companies ordered by ticker.
func (s *Store) ListCompanies(ctx context.Context) ([]*Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticker, name, cik, sic_code, industry, sector, created_at, updated_at
		FROM companies ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	defer rows.Close()

	var companies []*Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}
	return companies, rows.Err()
}

// DeleteCompany removes a company row. Deleting an absent ticker is a no-op.
func (s *Store) DeleteCompany(ctx context.Context, ticker string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM companies WHERE ticker = ?", ticker)
	if err != nil {
		return fmt.Errorf("deleting company %s: %w", ticker, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*Company, error) {
	var (
		company                   Company
		sicCode, industry, sector sql.NullString
		createdAt, updatedAt      string
	)
	err := row.Scan(&company.ID, &company.Ticker, &company.Name, &company.CIK,
		&sicCode, &industry, &sector, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	company.SICCode = sicCode.String
	company.Industry = industry.String
	company.Sector = sector.String
	company.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	company.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &company, nil
}
