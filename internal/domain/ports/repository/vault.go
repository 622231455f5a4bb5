package repository

import (
	"context"

	"unzer-reconciler/internal/domain/model"
)

type VaultRepository interface {
	Save(ctx context.Context, tx Tx, v *model.VaultToken) error
	FindByPublicHash(ctx context.Context, tx Tx, customerID, publicHash string) (*model.VaultToken, error)
}
