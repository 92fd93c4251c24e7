// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package filings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS companies (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker      TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	cik         TEXT NOT NULL UNIQUE,
	sic_code    TEXT,
	industry    TEXT,
	sector      TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_company_ticker ON companies(ticker);
CREATE INDEX IF NOT EXISTS idx_company_cik ON companies(cik);

CREATE TABLE IF NOT EXISTS sec_filings (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker           TEXT NOT NULL,
	filing_type      TEXT NOT NULL,
	fiscal_year      INTEGER NOT NULL CHECK (fiscal_year >= 1900 AND fiscal_year <= 2100),
	fiscal_period    TEXT NOT NULL,
	filing_date      TEXT NOT NULL,
	accession_number TEXT NOT NULL UNIQUE,
	document_url     TEXT,
	processed        INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL,
	UNIQUE (ticker, fiscal_year, fiscal_period)
);
CREATE INDEX IF NOT EXISTS idx_filing_ticker_year ON sec_filings(ticker, fiscal_year);
CREATE INDEX IF NOT EXISTS idx_filing_date ON sec_filings(filing_date);

CREATE TABLE IF NOT EXISTS financial_ratios (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker            TEXT NOT NULL,
	fiscal_year       INTEGER NOT NULL,
	calculation_date  TEXT NOT NULL,
	current_ratio     REAL,
	quick_ratio       REAL,
	cash_ratio        REAL,
	debt_to_equity    REAL,
	debt_to_assets    REAL,
	interest_coverage REAL,
	gross_margin      REAL,
	operating_margin  REAL,
	net_margin        REAL,
	return_on_assets  REAL,
	return_on_equity  REAL,
	altman_z_score    REAL,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ratio_ticker_year ON financial_ratios(ticker, fiscal_year);

CREATE TABLE IF NOT EXISTS credit_assessments (
	id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	ticker                  TEXT NOT NULL,
	assessment_date         TEXT NOT NULL,
	liquidity_score         INTEGER CHECK (liquidity_score >= 1 AND liquidity_score <= 10),
	leverage_score          INTEGER CHECK (leverage_score >= 1 AND leverage_score <= 10),
	profitability_score     INTEGER CHECK (profitability_score >= 1 AND profitability_score <= 10),
	overall_credit_score    INTEGER CHECK (overall_credit_score >= 1 AND overall_credit_score <= 100),
	credit_rating           TEXT,
	recommendation          TEXT,
	risk_summary            TEXT,
	analyst_notes           TEXT,
	compliance_check_passed INTEGER NOT NULL DEFAULT 0,
	created_at              TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assessment_ticker_date ON credit_assessments(ticker, assessment_date);
`

// Store provides access to company and filing metadata in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if necessary) the SQLite database at path.
// Parent directories are created as needed.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	// WAL mode for concurrent readers alongside the ingest writer
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// HealthCheck verifies the database answers a trivial query.
func (s *Store) HealthCheck(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("filings store unhealthy: %w", err)
	}
	return nil
}
