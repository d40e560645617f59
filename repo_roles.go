package identity

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Roles looks up static (scope, name) reference data. Roles are seeded by
// the host application; this package never creates them.
type Roles interface {
	FindByScopeAndName(ctx context.Context, scope RoleScope, name RoleName) (*Role, error)
}

type roles struct {
	db *bun.DB
}

var _ Roles = (*roles)(nil)

func NewRolesRepository(db *bun.DB) Roles {
	return &roles{db: db}
}

func (r *roles) FindByScopeAndName(ctx context.Context, scope RoleScope, name RoleName) (*Role, error) {
	record := &Role{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.scope = ?", scope).
		Where("?TableAlias.name = ?", name).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"scope": scope,
					"name":  name,
				})
		}
		return nil, err
	}

	return record, nil
}
