package identity_test

import (
	"context"
	"testing"
	"time"

	identity "github.com/flowmatic/go-identity"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestResolveResetTokenHandlerRequiresParams(t *testing.T) {
	handler := identity.NewResolveResetTokenHandler(&MockRepositoryManager{}).WithLogger(testLogger{})

	err := handler.Execute(context.Background(), identity.ResolveResetTokenMessage{
		Token: "some-token",
	})
	requireCategory(t, err, goerrors.CategoryBadInput)

	err = handler.Execute(context.Background(), identity.ResolveResetTokenMessage{
		UserID: uuid.NewString(),
	})
	requireCategory(t, err, goerrors.CategoryBadInput)

	err = handler.Execute(context.Background(), identity.ResolveResetTokenMessage{
		UserID: "not-a-uuid",
		Token:  "some-token",
	})
	requireCategory(t, err, goerrors.CategoryBadInput)
}

func TestResolveResetTokenHandlerCollapsedLookupMiss(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}

	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	repo.On("Users").Return(users)
	// wrong id, wrong token, and expired token all land here
	users.On("FindByResetToken", mock.Anything, userID, "stale-token", now).
		Return(nil, repository.NewRecordNotFound()).Once()

	handler := identity.NewResolveResetTokenHandler(repo).
		WithClock(func() time.Time { return now }).
		WithLogger(testLogger{})

	err := handler.Execute(context.Background(), identity.ResolveResetTokenMessage{
		UserID: userID.String(),
		Token:  "stale-token",
	})

	requireCategory(t, err, goerrors.CategoryNotFound)
	users.AssertExpectations(t)
}

func TestResolveResetTokenHandlerReturnsSanitizedUser(t *testing.T) {
	repo := &MockRepositoryManager{}
	users := &MockUsers{}
	sink := &MockActivitySink{}

	now := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	token := identity.NewResetToken()
	user := &identity.User{
		ID:                 uuid.New(),
		Email:              "pepe.rone@example.com",
		FirstName:          strptr("Pepe"),
		PasswordHash:       strptr("$2a$10$hash"),
		ResetPasswordToken: &token,
	}

	repo.On("Users").Return(users)
	users.On("FindByResetToken", mock.Anything, user.ID, token, now).
		Return(user, nil).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt identity.ActivityEvent) bool {
		return evt.EventType == identity.ActivityEventPasswordResetResolved &&
			evt.UserID == user.ID.String()
	})).Return(nil).Once()

	handler := identity.NewResolveResetTokenHandler(repo).
		WithActivitySink(sink).
		WithClock(func() time.Time { return now }).
		WithLogger(testLogger{})

	var resp *identity.ResolveResetTokenResponse
	err := handler.Execute(context.Background(), identity.ResolveResetTokenMessage{
		UserID: user.ID.String(),
		Token:  token,
		OnResponse: func(r *identity.ResolveResetTokenResponse) {
			resp = r
		},
	})

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, user.ID, resp.User.ID)
	assert.Equal(t, "pepe.rone@example.com", resp.User.Email)
	assert.False(t, resp.User.IsPending)

	users.AssertExpectations(t)
	sink.AssertExpectations(t)
}
