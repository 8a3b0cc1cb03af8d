// Package access answers who may do what: realm roles on one axis, queue
// assignment rank on the other.
package access

import (
	"errors"
	"fmt"

	"institution-manager/constants"
	"institution-manager/models/queue"
	"institution-manager/models/ticket"
	"institution-manager/models/user"
	"institution-manager/types"

	"gorm.io/gorm"
)

// Principal is the authenticated caller. ID 0 is the anonymous caller.
type Principal struct {
	ID      uint     `json:"id"`
	Subject string   `json:"subject"`
	Roles   []string `json:"roles"`
}

func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (p *Principal) IsAnonymous() bool {
	return p == nil || p.ID == constants.AnonymousUserID
}

var ranks = map[string]int{
	constants.AccessTier1:   1,
	constants.AccessTier2:   2,
	constants.AccessManager: 3,
}

// Rank orders access levels: Tier 1 < Tier 2 < Manager. No assignment or an
// unknown level ranks 0.
func Rank(a *queue.AgentAssignment) int {
	if a == nil || a.AccessLevel == nil {
		return 0
	}
	return ranks[*a.AccessLevel]
}

func IsManager(a *queue.AgentAssignment) bool {
	return Rank(a) == ranks[constants.AccessManager]
}

// CanAssign allows the actor to hand a ticket to target when the actor ranks
// at least as high, or is a Manager.
func CanAssign(actor, target *queue.AgentAssignment) bool {
	return IsManager(actor) || Rank(actor) >= Rank(target)
}

// CanTransfer allows Managers and assignments flagged allow_transfer.
func CanTransfer(a *queue.AgentAssignment) bool {
	return a != nil && (IsManager(a) || a.AllowTransfer)
}

// CheckClaim requires an assignment in the ticket's queue and an unowned ticket.
func CheckClaim(a *queue.AgentAssignment, t *ticket.Ticket) error {
	if a == nil {
		return types.PermissionDenied("Agent not assigned to this queue")
	}
	if t.CurrentAgentID != nil {
		return types.Conflict("Ticket already claimed")
	}
	return nil
}

// AssignmentFor returns the user's assignment in a queue, or nil.
func AssignmentFor(tx *gorm.DB, userID uint, queueID *uint) (*queue.AgentAssignment, error) {
	if queueID == nil {
		return nil, nil
	}
	var a queue.AgentAssignment
	err := tx.Where("agent_user_id = ? AND queue_id = ?", userID, *queueID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load agent assignment: %w", err)
	}
	return &a, nil
}

// RequireAssignment is AssignmentFor that turns "none" into PermissionDenied.
func RequireAssignment(tx *gorm.DB, userID uint, queueID *uint) (*queue.AgentAssignment, error) {
	a, err := AssignmentFor(tx, userID, queueID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, types.PermissionDenied("Agent not assigned to this queue")
	}
	return a, nil
}

// AssignedQueueIDs lists the queues an agent works.
func AssignedQueueIDs(tx *gorm.DB, userID uint) ([]uint, error) {
	var ids []uint
	if err := tx.Model(&queue.AgentAssignment{}).Where("agent_user_id = ?", userID).Pluck("queue_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load agent queues: %w", err)
	}
	return ids, nil
}

// GroupIDs lists the groups a user belongs to.
func GroupIDs(tx *gorm.DB, userID uint) ([]uint, error) {
	var ids []uint
	if err := tx.Model(&user.UserGroup{}).Where("user_id = ?", userID).Pluck("group_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load user groups: %w", err)
	}
	return ids, nil
}

// LocalRoles lists role names granted in the local user_roles table.
func LocalRoles(tx *gorm.DB, userID uint) ([]string, error) {
	var names []string
	err := tx.Model(&user.Role{}).
		Joins("JOIN user_roles ur ON ur.role_id = roles.id").
		Where("ur.user_id = ?", userID).
		Order("roles.name").
		Pluck("roles.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load user roles: %w", err)
	}
	return names, nil
}

// CanSubmitToQueue reports whether any of the user's groups may file into the queue.
func CanSubmitToQueue(tx *gorm.DB, groupIDs []uint, queueID uint) (bool, error) {
	if len(groupIDs) == 0 {
		return false, nil
	}
	var n int64
	err := tx.Model(&queue.QueuePermission{}).
		Where("queue_id = ? AND group_id IN ?", queueID, groupIDs).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check queue permission: %w", err)
	}
	return n > 0, nil
}

// TicketTypeAllowed reports whether a ticket type is open to the given groups.
// A type without allowed groups is open to everyone.
func TicketTypeAllowed(tx *gorm.DB, groupIDs []uint, ticketTypeID uint) (bool, error) {
	var allowed []uint
	err := tx.Model(&ticket.TicketTypeAllowedGroup{}).
		Where("ticket_type_id = ?", ticketTypeID).
		Pluck("group_id", &allowed).Error
	if err != nil {
		return false, fmt.Errorf("failed to load ticket type groups: %w", err)
	}
	if len(allowed) == 0 {
		return true, nil
	}
	mine := make(map[uint]bool, len(groupIDs))
	for _, g := range groupIDs {
		mine[g] = true
	}
	for _, g := range allowed {
		if mine[g] {
			return true, nil
		}
	}
	return false, nil
}

// MergeRoles unions token roles with local roles, keeping first-seen order.
func MergeRoles(sets ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, set := range sets {
		for _, r := range set {
			if r == "" || seen[r] {
				continue
			}
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}
