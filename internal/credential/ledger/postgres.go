package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"eduhub/internal/credential/models"
)

// Postgres persists claims in the claim_records table. The primary key on
// (holder_id, credential_type) together with ON CONFLICT DO NOTHING makes
// the first insert win.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger. The schema comes from
// the migrations package.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const claimColumns = `holder_oc_id, holder_address, credential_type, is_ocb, issued_at`

func (p *Postgres) Has(ctx context.Context, holderID, credentialType string) (bool, error) {
	if holderID == "" {
		return false, nil
	}
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM claim_records WHERE holder_id = $1 AND credential_type = $2)`,
		holderID, credentialType,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check claim: %w", err)
	}
	return exists, nil
}

func (p *Postgres) Find(ctx context.Context, holderID, credentialType string) (models.ClaimRecord, error) {
	if holderID == "" {
		return models.ClaimRecord{}, ErrNotFound
	}
	row := p.db.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claim_records WHERE holder_id = $1 AND credential_type = $2`,
		holderID, credentialType,
	)
	claim, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ClaimRecord{}, ErrNotFound
		}
		return models.ClaimRecord{}, fmt.Errorf("find claim: %w", err)
	}
	return claim, nil
}

func (p *Postgres) Record(ctx context.Context, claim models.ClaimRecord) error {
	if err := validateClaim(claim); err != nil {
		return err
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO claim_records (holder_id, `+claimColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (holder_id, credential_type) DO NOTHING`,
		claim.HolderID(),
		nullString(claim.HolderOCID),
		nullString(claim.HolderAddress),
		claim.CredentialType,
		claim.IsOCB,
		claim.IssuedAt,
	)
	if err != nil {
		return fmt.Errorf("record claim: %w", err)
	}
	return nil
}

func (p *Postgres) ListFor(ctx context.Context, holderID string) ([]models.ClaimRecord, error) {
	out := make([]models.ClaimRecord, 0)
	if holderID == "" {
		return out, nil
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+claimColumns+` FROM claim_records WHERE holder_id = $1 ORDER BY issued_at, credential_type`,
		holderID,
	)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return out, nil
}

func (p *Postgres) Clear(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM claim_records`); err != nil {
		return fmt.Errorf("clear claims: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (models.ClaimRecord, error) {
	var (
		claim   models.ClaimRecord
		ocid    sql.NullString
		address sql.NullString
	)
	if err := row.Scan(&ocid, &address, &claim.CredentialType, &claim.IsOCB, &claim.IssuedAt); err != nil {
		return models.ClaimRecord{}, err
	}
	claim.HolderOCID = ocid.String
	claim.HolderAddress = address.String
	claim.IssuedAt = claim.IssuedAt.UTC()
	return claim, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
