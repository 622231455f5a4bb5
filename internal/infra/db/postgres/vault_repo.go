package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/domain/ports/repository"
)

var _ repository.VaultRepository = (*VaultRepo)(nil)

// TokenCipher seals gateway tokens at rest.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

type VaultRepo struct {
	pool   *pgxpool.Pool
	cipher TokenCipher
}

func NewVaultRepo(pool *pgxpool.Pool, cipher TokenCipher) *VaultRepo {
	return &VaultRepo{pool: pool, cipher: cipher}
}

// Save upserts the token. Saving the same payment type twice reactivates it.
func (r *VaultRepo) Save(ctx context.Context, tx repository.Tx, v *model.VaultToken) error {
	sealed, err := r.cipher.Encrypt(v.GatewayToken)
	if err != nil {
		return domain.ErrOperationFailed
	}
	details, err := json.Marshal(v.Details)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO vault_tokens (customer_id, public_hash, method, gateway_token, details, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (customer_id, public_hash) DO UPDATE SET
  method=$3, gateway_token=$4, details=$5, active=$6;`
	if _, err := execSQL(ctx, r.pool, tx, q, v.CustomerID, v.PublicHash, v.Method, sealed, details, v.Active, v.CreatedAt); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *VaultRepo) FindByPublicHash(ctx context.Context, tx repository.Tx, customerID, publicHash string) (*model.VaultToken, error) {
	const q = `SELECT customer_id, public_hash, method, gateway_token, details, active, created_at
  FROM vault_tokens WHERE customer_id=$1 AND public_hash=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, customerID, publicHash)
	if err != nil {
		return nil, err
	}

	var (
		v       model.VaultToken
		sealed  string
		details []byte
	)
	if err := row.Scan(&v.CustomerID, &v.PublicHash, &v.Method, &sealed, &details, &v.Active, &v.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if v.GatewayToken, err = r.cipher.Decrypt(sealed); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &v.Details); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return &v, nil
}
