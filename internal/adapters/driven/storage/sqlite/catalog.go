// Package sqlite provides the SQLite-backed report catalog.
// The catalog maps report content hashes to company metadata so a
// question's company scope can be resolved to target report ids.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/finqa-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/finqa-cli/internal/core/domain"
	"github.com/custodia-labs/finqa-cli/internal/core/ports/driven"
)

// Ensure Catalog implements the interface.
var _ driven.ReportCatalog = (*Catalog)(nil)

// Catalog is a SQLite-based implementation of driven.ReportCatalog.
type Catalog struct {
	db   *sql.DB
	path string
}

// NewCatalog opens (or creates) the catalog database in dataDir.
func NewCatalog(dataDir string) (*Catalog, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "catalog.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	c := &Catalog{db: db, path: dbPath}

	if err := c.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// migrate runs all pending migrations.
func (c *Catalog) migrate(fsys embed.FS) error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := c.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := c.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := c.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Put inserts or updates a catalog entry.
func (c *Catalog) Put(ctx context.Context, meta domain.ReportMeta) error {
	if meta.SHA1 == "" {
		return fmt.Errorf("%w: report sha1 is empty", domain.ErrInvalidInput)
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO reports (sha1, company_name, file_name, page_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sha1) DO UPDATE SET
			company_name = excluded.company_name,
			file_name = excluded.file_name,
			page_count = excluded.page_count,
			updated_at = CURRENT_TIMESTAMP
	`, meta.SHA1, meta.CompanyName, meta.FileName, meta.PageCount)
	if err != nil {
		return fmt.Errorf("saving report %s: %w", meta.SHA1, err)
	}
	return nil
}

// Get returns the entry for a report sha1.
func (c *Catalog) Get(ctx context.Context, sha1 string) (*domain.ReportMeta, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT sha1, company_name, file_name, page_count
		FROM reports WHERE sha1 = ?
	`, sha1)

	var meta domain.ReportMeta
	err := row.Scan(&meta.SHA1, &meta.CompanyName, &meta.FileName, &meta.PageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", sha1, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting report %s: %w", sha1, err)
	}
	return &meta, nil
}

// ResolveCompany returns all reports for the named company.
func (c *Catalog) ResolveCompany(ctx context.Context, company string) ([]domain.ReportMeta, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT sha1, company_name, file_name, page_count
		FROM reports
		WHERE company_name = ? COLLATE NOCASE
		ORDER BY sha1
	`, strings.TrimSpace(company))
	if err != nil {
		return nil, fmt.Errorf("resolving company %q: %w", company, err)
	}
	defer rows.Close()

	metas, err := scanMetas(rows)
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, fmt.Errorf("company %q: %w", company, domain.ErrNotFound)
	}
	return metas, nil
}

// List returns all catalog entries ordered by company name.
func (c *Catalog) List(ctx context.Context) ([]domain.ReportMeta, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT sha1, company_name, file_name, page_count
		FROM reports ORDER BY company_name, sha1
	`)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

// scanMetas collects rows into report metadata entries.
func scanMetas(rows *sql.Rows) ([]domain.ReportMeta, error) {
	var metas []domain.ReportMeta
	for rows.Next() {
		var meta domain.ReportMeta
		if err := rows.Scan(&meta.SHA1, &meta.CompanyName, &meta.FileName, &meta.PageCount); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating report rows: %w", err)
	}
	return metas, nil
}

// Path returns the database file path.
func (c *Catalog) Path() string {
	return c.path
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	return c.db.Close()
}
