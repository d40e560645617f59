package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories plus the transaction
// boundary every multi-entity mutation runs inside.
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
	Roles() Roles
	Workflows() Workflows
	Credentials() Credentials
	SharedWorkflows() SharedWorkflows
	SharedCredentials() SharedCredentials
}

type mngr struct {
	db                *bun.DB
	users             Users
	roles             Roles
	workflows         Workflows
	credentials       Credentials
	sharedWorkflows   SharedWorkflows
	sharedCredentials SharedCredentials
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:                db,
		users:             NewUsersRepository(db),
		roles:             NewRolesRepository(db),
		workflows:         NewWorkflowsRepository(db),
		credentials:       NewCredentialsRepository(db),
		sharedWorkflows:   NewSharedWorkflowsRepository(db),
		sharedCredentials: NewSharedCredentialsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.roles == nil {
		return errors.New("repository roles should be initialized")
	}

	if m.workflows == nil || m.sharedWorkflows == nil {
		return errors.New("workflow repositories should be initialized")
	}

	if m.credentials == nil || m.sharedCredentials == nil {
		return errors.New("credential repositories should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Roles() Roles {
	return m.roles
}

func (m mngr) Workflows() Workflows {
	return m.workflows
}

func (m mngr) Credentials() Credentials {
	return m.credentials
}

func (m mngr) SharedWorkflows() SharedWorkflows {
	return m.sharedWorkflows
}

func (m mngr) SharedCredentials() SharedCredentials {
	return m.sharedCredentials
}
