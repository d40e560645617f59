package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SharedWorkflows manages the user/workflow join rows the ownership
// transfer engine rewrites.
type SharedWorkflows interface {
	OwnedWorkflowIDsTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, ownerRoleID int64) ([]uuid.UUID, error)
	FindOwnedTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, ownerRoleID int64) ([]*SharedWorkflow, error)
	DeleteForUserOnWorkflowsTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, workflowIDs []uuid.UUID) error
	TransferOwnershipTx(ctx context.Context, tx bun.IDB, fromUserID, toUserID uuid.UUID, ownerRoleID int64) error
}

// SharedCredentials manages the user/credential join rows.
type SharedCredentials interface {
	OwnedCredentialIDsTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, ownerRoleID int64) ([]uuid.UUID, error)
	DeleteForUserOnCredentialsTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, credentialIDs []uuid.UUID) error
	TransferOwnershipTx(ctx context.Context, tx bun.IDB, fromUserID, toUserID uuid.UUID, ownerRoleID int64) error
}

// Workflows deletes workflow rows during purge-mode user deletion.
type Workflows interface {
	DeleteByIDsTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID) error
}

// Credentials deletes credential rows during purge-mode user deletion.
type Credentials interface {
	DeleteByIDsTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID) error
}

type sharedWorkflows struct {
	db *bun.DB
}

var _ SharedWorkflows = (*sharedWorkflows)(nil)

func NewSharedWorkflowsRepository(db *bun.DB) SharedWorkflows {
	return &sharedWorkflows{db: db}
}

func (r *sharedWorkflows) OwnedWorkflowIDsTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, ownerRoleID int64) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := tx.NewSelect().
		Model((*SharedWorkflow)(nil)).
		Column("workflow_id").
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.role_id = ?", ownerRoleID).
		Scan(ctx, &ids)

	return ids, err
}

func (r *sharedWorkflows) FindOwnedTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, ownerRoleID int64) ([]*SharedWorkflow, error) {
	var records []*SharedWorkflow
	err := tx.NewSelect().
		Model(&records).
		Relation("Workflow").
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.role_id = ?", ownerRoleID).
		Scan(ctx)

	return records, err
}

func (r *sharedWorkflows) DeleteForUserOnWorkflowsTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, workflowIDs []uuid.UUID) error {
	if len(workflowIDs) == 0 {
		return nil
	}

	_, err := tx.NewDelete().
		Model((*SharedWorkflow)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.workflow_id IN (?)", bun.In(workflowIDs)).
		Exec(ctx)

	return err
}

func (r *sharedWorkflows) TransferOwnershipTx(ctx context.Context, tx bun.IDB, fromUserID, toUserID uuid.UUID, ownerRoleID int64) error {
	_, err := tx.NewUpdate().
		Model((*SharedWorkflow)(nil)).
		Set("user_id = ?", toUserID).
		Where("?TableAlias.user_id = ?", fromUserID).
		Where("?TableAlias.role_id = ?", ownerRoleID).
		Exec(ctx)

	return err
}

type sharedCredentials struct {
	db *bun.DB
}

var _ SharedCredentials = (*sharedCredentials)(nil)

func NewSharedCredentialsRepository(db *bun.DB) SharedCredentials {
	return &sharedCredentials{db: db}
}

func (r *sharedCredentials) OwnedCredentialIDsTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, ownerRoleID int64) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := tx.NewSelect().
		Model((*SharedCredential)(nil)).
		Column("credential_id").
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.role_id = ?", ownerRoleID).
		Scan(ctx, &ids)

	return ids, err
}

func (r *sharedCredentials) DeleteForUserOnCredentialsTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, credentialIDs []uuid.UUID) error {
	if len(credentialIDs) == 0 {
		return nil
	}

	_, err := tx.NewDelete().
		Model((*SharedCredential)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.credential_id IN (?)", bun.In(credentialIDs)).
		Exec(ctx)

	return err
}

func (r *sharedCredentials) TransferOwnershipTx(ctx context.Context, tx bun.IDB, fromUserID, toUserID uuid.UUID, ownerRoleID int64) error {
	_, err := tx.NewUpdate().
		Model((*SharedCredential)(nil)).
		Set("user_id = ?", toUserID).
		Where("?TableAlias.user_id = ?", fromUserID).
		Where("?TableAlias.role_id = ?", ownerRoleID).
		Exec(ctx)

	return err
}

type workflows struct {
	db *bun.DB
}

var _ Workflows = (*workflows)(nil)

func NewWorkflowsRepository(db *bun.DB) Workflows {
	return &workflows{db: db}
}

func (r *workflows) DeleteByIDsTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := tx.NewDelete().
		Model((*Workflow)(nil)).
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Exec(ctx)

	return err
}

type credentials struct {
	db *bun.DB
}

var _ Credentials = (*credentials)(nil)

func NewCredentialsRepository(db *bun.DB) Credentials {
	return &credentials{db: db}
}

func (r *credentials) DeleteByIDsTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := tx.NewDelete().
		Model((*Credential)(nil)).
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Exec(ctx)

	return err
}
