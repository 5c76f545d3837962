package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"snapcircle/internal/types"
)

// MembershipRepository provides read access to group memberships, including
// the demographic projection the sampler's affinity pass consumes.
type MembershipRepository struct {
	db DBTX
}

// NewMembershipRepository creates a MembershipRepository backed by the given
// connection.
func NewMembershipRepository(db DBTX) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// ListMembers returns the membership projections for a group.
func (r *MembershipRepository) ListMembers(ctx context.Context, groupID string) ([]types.Member, error) {
	rows, err := r.db.Query(ctx,
		`SELECT m.user_id, m.group_id, u.demographic_group
		 FROM group_memberships m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.group_id = $1`, groupID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list group members", err)
	}
	defer rows.Close()

	var members []types.Member
	for rows.Next() {
		var member types.Member
		if err := rows.Scan(&member.UserID, &member.GroupID, &member.DemographicGroup); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan membership", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating memberships", err)
	}
	return members, nil
}

// AssertMember fails with a permission error unless the user belongs to the
// group.
func (r *MembershipRepository) AssertMember(ctx context.Context, groupID, userID string) error {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM group_memberships WHERE group_id = $1 AND user_id = $2
		 )`, groupID, userID).Scan(&exists)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to check membership", err)
	}
	if !exists {
		return types.NewAppError(types.ErrCodePermissionNotMember,
			fmt.Sprintf("user %q is not a member of group %q", userID, groupID), nil)
	}
	return nil
}

// AssertCanCreateEvents fails unless the user is a member of the group whose
// membership carries the event-creation capability.
func (r *MembershipRepository) AssertCanCreateEvents(ctx context.Context, groupID, userID string) error {
	var canCreate bool
	err := r.db.QueryRow(ctx,
		`SELECT can_create_photo_events FROM group_memberships
		 WHERE group_id = $1 AND user_id = $2`, groupID, userID).Scan(&canCreate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.NewAppError(types.ErrCodePermissionNotMember,
				fmt.Sprintf("user %q is not a member of group %q", userID, groupID), err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to check event creation capability", err)
	}
	if !canCreate {
		return types.NewAppError(types.ErrCodePermissionCreateEvents,
			fmt.Sprintf("user %q cannot create photo events in group %q", userID, groupID), nil)
	}
	return nil
}

// ListGroupIDsForUser returns the IDs of every group the user belongs to.
func (r *MembershipRepository) ListGroupIDsForUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT group_id FROM group_memberships WHERE user_id = $1`, userID)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list user groups", err)
	}
	defer rows.Close()

	var groupIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan group id", err)
		}
		groupIDs = append(groupIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating user groups", err)
	}
	return groupIDs, nil
}
