package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivateShellSQL fills a pending shell in a single statement. The
// password_hash IS NULL guard makes concurrent signup attempts race
// safely: the loser updates zero rows.
var ActivateShellSQL = `UPDATE "users" AS "usr"
SET
	"first_name" = ?,
	"last_name" = ?,
	"password_hash" = ?,
	"updated_at" = ?
WHERE
	"usr"."id" = ?
AND "usr"."password_hash" IS NULL
RETURNING *;`

// IssueResetTokenSQL overwrites any previously issued token pair, so at
// most one reset token is ever live per user.
var IssueResetTokenSQL = `UPDATE "users" AS "usr"
SET
	"reset_password_token" = ?,
	"reset_password_token_expiration" = ?,
	"updated_at" = ?
WHERE
	"usr"."id" = ?
RETURNING *;`

// ConsumeResetTokenSQL sets the new hash and clears the token pair in one
// statement. A crash can therefore never leave a live token pointing at
// an already-changed password.
var ConsumeResetTokenSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"reset_password_token" = NULL,
	"reset_password_token_expiration" = NULL,
	"updated_at" = ?
WHERE
	"usr"."id" = ?
AND "usr"."reset_password_token" = ?
AND "usr"."reset_password_token_expiration" > ?
RETURNING *;`

// Users is the user directory.
type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetManyByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)
	FindByEmails(ctx context.Context, emails []string) ([]*User, error)
	FindActivatedByEmail(ctx context.Context, email string) (*User, error)
	FindByResetToken(ctx context.Context, id uuid.UUID, token string, now time.Time) (*User, error)

	CreateShellTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	ActivateShellTx(ctx context.Context, tx bun.IDB, id uuid.UUID, firstName, lastName, passwordHash string) (*User, error)
	SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt int64) (*User, error)
	ConsumeResetToken(ctx context.Context, id uuid.UUID, token, passwordHash string, now time.Time) (*User, error)
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Relation("GlobalRole").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetManyByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Relation("GlobalRole").
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Scan(ctx)

	return records, err
}

func (a *users) FindByEmails(ctx context.Context, emails []string) ([]*User, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	normalized := make([]string, 0, len(emails))
	for _, email := range emails {
		normalized = append(normalized, NormalizeEmail(email))
	}

	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.email IN (?)", bun.In(normalized)).
		Scan(ctx)

	return records, err
}

func (a *users) FindActivatedByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Relation("GlobalRole").
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Where("?TableAlias.password_hash IS NOT NULL").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"email": NormalizeEmail(email)})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) FindByResetToken(ctx context.Context, id uuid.UUID, token string, now time.Time) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.reset_password_token = ?", token).
		Where("?TableAlias.reset_password_token_expiration > ?", now.Unix()).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) CreateShellTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	record.Email = NormalizeEmail(record.Email)
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *users) ActivateShellTx(ctx context.Context, tx bun.IDB, id uuid.UUID, firstName, lastName, passwordHash string) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, ActivateShellSQL,
		firstName, lastName, passwordHash, time.Now(), id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return res[0], nil
}

func (a *users) SetResetToken(ctx context.Context, id uuid.UUID, token string, expiresAt int64) (*User, error) {
	res, err := a.Repository.Raw(ctx, IssueResetTokenSQL,
		token, expiresAt, time.Now(), id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return res[0], nil
}

func (a *users) ConsumeResetToken(ctx context.Context, id uuid.UUID, token, passwordHash string, now time.Time) (*User, error) {
	res, err := a.Repository.Raw(ctx, ConsumeResetTokenSQL,
		passwordHash, now, id.String(), token, now.Unix())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return res[0], nil
}

func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)

	return err
}
