package identity_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	identity "github.com/flowmatic/go-identity"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

func requireCategory(t *testing.T, err error, category goerrors.Category) {
	t.Helper()
	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr), "expected a rich error, got: %v", err)
	require.Equal(t, category, richErr.Category)
}

func requireTextCode(t *testing.T, err error, textCode string) {
	t.Helper()
	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr), "expected a rich error, got: %v", err)
	require.Equal(t, textCode, richErr.TextCode)
}

// MockRepositoryManager implements identity.RepositoryManager. A nil
// preset return on RunInTx executes the transactional function with a
// zero tx, so repository mocks see the calls and the function's error
// propagates like a real rollback.
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if err := args.Error(0); err != nil {
		return err
	}
	var tx bun.Tx
	return f(ctx, tx)
}

func (m *MockRepositoryManager) Users() identity.Users {
	args := m.Called()
	return args.Get(0).(identity.Users)
}

func (m *MockRepositoryManager) Roles() identity.Roles {
	args := m.Called()
	return args.Get(0).(identity.Roles)
}

func (m *MockRepositoryManager) Workflows() identity.Workflows {
	args := m.Called()
	return args.Get(0).(identity.Workflows)
}

func (m *MockRepositoryManager) Credentials() identity.Credentials {
	args := m.Called()
	return args.Get(0).(identity.Credentials)
}

func (m *MockRepositoryManager) SharedWorkflows() identity.SharedWorkflows {
	args := m.Called()
	return args.Get(0).(identity.SharedWorkflows)
}

func (m *MockRepositoryManager) SharedCredentials() identity.SharedCredentials {
	args := m.Called()
	return args.Get(0).(identity.SharedCredentials)
}

// MockUsers implements identity.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*identity.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) GetManyByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.User, error) {
	args := m.Called(ctx, ids)
	if users, ok := args.Get(0).([]*identity.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) FindByEmails(ctx context.Context, emails []string) ([]*identity.User, error) {
	args := m.Called(ctx, emails)
	if users, ok := args.Get(0).([]*identity.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) FindActivatedByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*identity.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) FindByResetToken(ctx context.Context, id uuid.UUID, token string, now time.Time) (*identity.User, error) {
	args := m.Called(ctx, id, token, now)
	if user, ok := args.Get(0).(*identity.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) CreateShellTx(ctx context.Context, tx bun.IDB, record *identity.User) (*identity.User, error) {
	args := m.Called(ctx, tx, record)
	if user, ok := args.Get(0).(*identity.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) ActivateShellTx(ctx context.Context, tx bun.IDB, id uuid.UUID, firstName, lastName, passwordHash string) (*identity.User, error) {
	args := m.Called(ctx, tx, id, firstName, lastName, passwordHash)
	if user, ok := args.Get(0).(*identity.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt int64) (*identity.User, error) {
	args := m.Called(ctx, id, token, expiresAt)
	if user, ok := args.Get(0).(*identity.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) ConsumeResetToken(ctx context.Context, id uuid.UUID, token, passwordHash string, now time.Time) (*identity.User, error) {
	args := m.Called(ctx, id, token, passwordHash, now)
	if user, ok := args.Get(0).(*identity.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockRoles implements identity.Roles
type MockRoles struct {
	mock.Mock
}

func (m *MockRoles) FindByScopeAndName(ctx context.Context, scope identity.RoleScope, name identity.RoleName) (*identity.Role, error) {
	args := m.Called(ctx, scope, name)
	if role, ok := args.Get(0).(*identity.Role); ok {
		return role, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSharedWorkflows implements identity.SharedWorkflows
type MockSharedWorkflows struct {
	mock.Mock
}

func (m *MockSharedWorkflows) OwnedWorkflowIDsTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, ownerRoleID int64) ([]uuid.UUID, error) {
	args := m.Called(ctx, tx, userID, ownerRoleID)
	if ids, ok := args.Get(0).([]uuid.UUID); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSharedWorkflows) FindOwnedTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, ownerRoleID int64) ([]*identity.SharedWorkflow, error) {
	args := m.Called(ctx, tx, userID, ownerRoleID)
	if shares, ok := args.Get(0).([]*identity.SharedWorkflow); ok {
		return shares, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSharedWorkflows) DeleteForUserOnWorkflowsTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, workflowIDs []uuid.UUID) error {
	args := m.Called(ctx, tx, userID, workflowIDs)
	return args.Error(0)
}

func (m *MockSharedWorkflows) TransferOwnershipTx(ctx context.Context, tx bun.IDB, fromUserID, toUserID uuid.UUID, ownerRoleID int64) error {
	args := m.Called(ctx, tx, fromUserID, toUserID, ownerRoleID)
	return args.Error(0)
}

// MockSharedCredentials implements identity.SharedCredentials
type MockSharedCredentials struct {
	mock.Mock
}

func (m *MockSharedCredentials) OwnedCredentialIDsTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, ownerRoleID int64) ([]uuid.UUID, error) {
	args := m.Called(ctx, tx, userID, ownerRoleID)
	if ids, ok := args.Get(0).([]uuid.UUID); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSharedCredentials) DeleteForUserOnCredentialsTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, credentialIDs []uuid.UUID) error {
	args := m.Called(ctx, tx, userID, credentialIDs)
	return args.Error(0)
}

func (m *MockSharedCredentials) TransferOwnershipTx(ctx context.Context, tx bun.IDB, fromUserID, toUserID uuid.UUID, ownerRoleID int64) error {
	args := m.Called(ctx, tx, fromUserID, toUserID, ownerRoleID)
	return args.Error(0)
}

// MockWorkflows implements identity.Workflows
type MockWorkflows struct {
	mock.Mock
}

func (m *MockWorkflows) DeleteByIDsTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID) error {
	args := m.Called(ctx, tx, ids)
	return args.Error(0)
}

// MockCredentials implements identity.Credentials
type MockCredentials struct {
	mock.Mock
}

func (m *MockCredentials) DeleteByIDsTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID) error {
	args := m.Called(ctx, tx, ids)
	return args.Error(0)
}

// MockMailer implements identity.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) IsConfigured() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockMailer) SendInvite(ctx context.Context, email identity.InviteEmail) (identity.EmailResult, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(identity.EmailResult), args.Error(1)
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, email identity.PasswordResetEmail) (identity.EmailResult, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(identity.EmailResult), args.Error(1)
}

// MockActivitySink implements identity.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event identity.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockSessionIssuer implements identity.SessionIssuer
type MockSessionIssuer struct {
	mock.Mock
}

func (m *MockSessionIssuer) IssueSessionToken(user *identity.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

// MockWorkflowActivator implements identity.WorkflowActivator
type MockWorkflowActivator struct {
	mock.Mock
}

func (m *MockWorkflowActivator) Deactivate(ctx context.Context, workflowID string) error {
	args := m.Called(ctx, workflowID)
	return args.Error(0)
}

// MockPasswordHasher implements identity.PasswordHasher
type MockPasswordHasher struct {
	mock.Mock
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Compare(password, hash string) error {
	args := m.Called(password, hash)
	return args.Error(0)
}

func strptr(s string) *string {
	return &s
}
