package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Deletion strategies reported to telemetry.
const (
	DeletionStrategyTransfer = "transfer_data"
	DeletionStrategyPurge    = "delete_data"
)

// DeleteUserMessage removes a user. With TransferID set, ownership of
// the target's workflows and credentials moves to the transferee;
// without it, the owned resources are deleted outright.
type DeleteUserMessage struct {
	RequesterID uuid.UUID `json:"requester_id" doc:"User performing the deletion."`
	TargetID    string    `json:"target_id" doc:"User to delete."`
	TransferID  string    `json:"transfer_id,omitempty" doc:"Optional user inheriting the target's resources."`
	OnResponse  func(resp *DeleteUserResponse)
}

func (m DeleteUserMessage) Type() string { return "user.delete" }

type DeleteUserResponse struct {
	Success bool
}

type DeleteUserHandler struct {
	repo      RepositoryManager
	activator WorkflowActivator
	activity  ActivitySink
	hooks     HookRunner
	logger    Logger
}

// NewDeleteUserHandler creates a handler with sane defaults.
func NewDeleteUserHandler(repo RepositoryManager) *DeleteUserHandler {
	return &DeleteUserHandler{
		repo:     repo,
		activity: noopActivitySink{},
		hooks:    noopHookRunner{},
		logger:   defLogger{},
	}
}

// WithWorkflowActivator sets the collaborator that stops running
// workflows before purge-mode deletion.
func (h *DeleteUserHandler) WithWorkflowActivator(activator WorkflowActivator) *DeleteUserHandler {
	h.activator = activator
	return h
}

// WithActivitySink sets the sink used to emit deletion events.
func (h *DeleteUserHandler) WithActivitySink(sink ActivitySink) *DeleteUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithHookRunner sets the runner for external lifecycle hooks.
func (h *DeleteUserHandler) WithHookRunner(hooks HookRunner) *DeleteUserHandler {
	h.hooks = normalizeHookRunner(hooks)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *DeleteUserHandler) WithLogger(logger Logger) *DeleteUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *DeleteUserHandler) Execute(ctx context.Context, event DeleteUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user deletion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteUserHandler) execute(ctx context.Context, event DeleteUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	targetID, err := uuid.Parse(event.TargetID)
	if err != nil {
		return goerrors.New("invalid target user id", goerrors.CategoryBadInput)
	}

	if event.RequesterID == targetID {
		h.logger.Debug("user deletion rejected, requester targeted their own account")
		return goerrors.New("cannot delete your own user", goerrors.CategoryBadInput)
	}

	var transferID uuid.UUID
	if event.TransferID != "" {
		transferID, err = uuid.Parse(event.TransferID)
		if err != nil {
			return goerrors.New("invalid transferee user id", goerrors.CategoryBadInput)
		}
		if transferID == targetID {
			return goerrors.New("the user to delete and the transferee cannot be the same user", goerrors.CategoryBadInput)
		}
	}

	ids := []uuid.UUID{targetID}
	if transferID != uuid.Nil {
		ids = append(ids, transferID)
	}

	users, err := h.repo.Users().GetManyByIDs(ctx, ids)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load users for deletion")
	}

	var target, transferee *User
	for _, user := range users {
		switch user.ID {
		case targetID:
			target = user
		case transferID:
			transferee = user
		}
	}

	if target == nil || (transferID != uuid.Nil && transferee == nil) {
		return goerrors.New("the user to delete and/or the transferee were not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound)
	}

	workflowOwnerRole, err := h.repo.Roles().FindByScopeAndName(ctx, RoleScopeWorkflow, RoleNameOwner)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal,
			"workflow owner role not found in database - inconsistent state")
	}

	credentialOwnerRole, err := h.repo.Roles().FindByScopeAndName(ctx, RoleScopeCredential, RoleNameOwner)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal,
			"credential owner role not found in database - inconsistent state")
	}

	priorStatus := "active"
	if target.IsPending() {
		priorStatus = "invited"
	}

	if transferee != nil {
		err = h.transferAndDelete(ctx, target, transferee, workflowOwnerRole.ID, credentialOwnerRole.ID)
	} else {
		err = h.purgeAndDelete(ctx, target, workflowOwnerRole.ID, credentialOwnerRole.ID)
	}
	if err != nil {
		if IsUniqueViolationError(err) {
			// a concurrent transfer won the race on one of the owner rows
			return goerrors.Wrap(err, goerrors.CategoryConflict, "user deletion conflicted with a concurrent ownership change").
				WithCode(goerrors.CodeConflict)
		}
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user deletion transaction failed")
	}

	metadata := map[string]any{
		"target_user_old_status": priorStatus,
		"migration_strategy":     DeletionStrategyPurge,
	}
	if transferee != nil {
		metadata["migration_strategy"] = DeletionStrategyTransfer
		metadata["migration_user_id"] = transferee.ID.String()
	}

	h.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventUserDeleted,
		Actor:      ActorRef{ID: event.RequesterID.String(), Type: "user"},
		UserID:     target.ID.String(),
		Metadata:   metadata,
		OccurredAt: time.Now(),
	})

	if err := h.hooks.Run(ctx, HookUserDeleted, SanitizeUser(target)); err != nil {
		h.logger.Warn("user.deleted hook error: %v", err)
	}

	if event.OnResponse != nil {
		event.OnResponse(&DeleteUserResponse{Success: true})
	}

	return nil
}

// transferAndDelete re-points the target's owner rows at the transferee
// and removes the target, all inside one transaction. The transferee's
// lesser shares on inherited resources are deleted first so the bulk
// re-point cannot hit the unique owner constraint.
func (h *DeleteUserHandler) transferAndDelete(ctx context.Context, target, transferee *User, workflowOwnerRoleID, credentialOwnerRoleID int64) error {
	return h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		sharedWorkflows := h.repo.SharedWorkflows()

		workflowIDs, err := sharedWorkflows.OwnedWorkflowIDsTx(ctx, tx, target.ID, workflowOwnerRoleID)
		if err != nil {
			return err
		}

		if err := sharedWorkflows.DeleteForUserOnWorkflowsTx(ctx, tx, transferee.ID, workflowIDs); err != nil {
			return err
		}

		if err := sharedWorkflows.TransferOwnershipTx(ctx, tx, target.ID, transferee.ID, workflowOwnerRoleID); err != nil {
			return err
		}

		sharedCredentials := h.repo.SharedCredentials()

		credentialIDs, err := sharedCredentials.OwnedCredentialIDsTx(ctx, tx, target.ID, credentialOwnerRoleID)
		if err != nil {
			return err
		}

		if err := sharedCredentials.DeleteForUserOnCredentialsTx(ctx, tx, transferee.ID, credentialIDs); err != nil {
			return err
		}

		if err := sharedCredentials.TransferOwnershipTx(ctx, tx, target.ID, transferee.ID, credentialOwnerRoleID); err != nil {
			return err
		}

		// cascading FK removes the target's remaining non-owner shares
		return h.repo.Users().DeleteTx(ctx, tx, target.ID)
	})
}

// purgeAndDelete removes the target's owned workflows and credentials
// outright, deactivating running workflows first.
func (h *DeleteUserHandler) purgeAndDelete(ctx context.Context, target *User, workflowOwnerRoleID, credentialOwnerRoleID int64) error {
	return h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ownedShares, err := h.repo.SharedWorkflows().FindOwnedTx(ctx, tx, target.ID, workflowOwnerRoleID)
		if err != nil {
			return err
		}

		workflowIDs := make([]uuid.UUID, 0, len(ownedShares))
		for _, share := range ownedShares {
			workflowIDs = append(workflowIDs, share.WorkflowID)
			if share.Workflow != nil && share.Workflow.Active {
				// an undeactivatable workflow must abort the delete, or
				// it would keep running with no owner
				if h.activator == nil {
					return goerrors.New("cannot delete user, an owned workflow is still active and no deactivator is configured", goerrors.CategoryInternal)
				}
				if err := h.activator.Deactivate(ctx, share.WorkflowID.String()); err != nil {
					return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to deactivate owned workflow before deletion")
				}
			}
		}

		credentialIDs, err := h.repo.SharedCredentials().OwnedCredentialIDsTx(ctx, tx, target.ID, credentialOwnerRoleID)
		if err != nil {
			return err
		}

		if err := h.repo.Workflows().DeleteByIDsTx(ctx, tx, workflowIDs); err != nil {
			return err
		}

		if err := h.repo.Credentials().DeleteByIDsTx(ctx, tx, credentialIDs); err != nil {
			return err
		}

		return h.repo.Users().DeleteTx(ctx, tx, target.ID)
	})
}

func (h *DeleteUserHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := h.activity.Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during user deletion: %v", err)
	}
}
