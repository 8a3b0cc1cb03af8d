package access_test

import (
	"errors"
	"testing"

	"institution-manager/constants"
	"institution-manager/database/testdb"
	"institution-manager/models/queue"
	"institution-manager/models/ticket"
	"institution-manager/models/user"
	"institution-manager/services/access"
	"institution-manager/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func level(l string) *queue.AgentAssignment {
	return &queue.AgentAssignment{AccessLevel: &l}
}

func TestRankOrder(t *testing.T) {
	assert.Equal(t, 0, access.Rank(nil))
	assert.Equal(t, 0, access.Rank(&queue.AgentAssignment{}))
	assert.Equal(t, 0, access.Rank(level("Intern")))
	assert.Less(t, access.Rank(level(constants.AccessTier1)), access.Rank(level(constants.AccessTier2)))
	assert.Less(t, access.Rank(level(constants.AccessTier2)), access.Rank(level(constants.AccessManager)))
}

func TestCanAssign(t *testing.T) {
	tier1 := level(constants.AccessTier1)
	tier2 := level(constants.AccessTier2)
	manager := level(constants.AccessManager)

	assert.False(t, access.CanAssign(tier1, manager), "tier 1 cannot hand work to a manager")
	assert.False(t, access.CanAssign(tier1, tier2))
	assert.True(t, access.CanAssign(tier1, tier1))
	assert.True(t, access.CanAssign(tier2, tier1))
	assert.True(t, access.CanAssign(tier1, nil), "unassigned target ranks 0")
	assert.True(t, access.CanAssign(manager, manager))
	assert.True(t, access.CanAssign(manager, tier1))
}

func TestCanTransfer(t *testing.T) {
	assert.False(t, access.CanTransfer(nil))
	assert.False(t, access.CanTransfer(level(constants.AccessTier2)))
	assert.True(t, access.CanTransfer(level(constants.AccessManager)))

	flagged := level(constants.AccessTier1)
	flagged.AllowTransfer = true
	assert.True(t, access.CanTransfer(flagged))
}

func TestCheckClaim(t *testing.T) {
	agent := uint(4)
	open := &ticket.Ticket{}
	taken := &ticket.Ticket{CurrentAgentID: &agent}

	assert.True(t, errors.Is(access.CheckClaim(nil, open), types.ErrPermissionDenied))
	assert.True(t, errors.Is(access.CheckClaim(level(constants.AccessTier1), taken), types.ErrConflict))
	assert.NoError(t, access.CheckClaim(level(constants.AccessTier1), open))
}

func TestPrincipalRoles(t *testing.T) {
	var nobody *access.Principal
	assert.False(t, nobody.HasRole(constants.RoleAdmin))
	assert.True(t, nobody.IsAnonymous())

	p := &access.Principal{ID: 2, Roles: []string{constants.RoleAgent}}
	assert.True(t, p.HasRole(constants.RoleAgent))
	assert.False(t, p.HasRole(constants.RoleAdmin))
	assert.False(t, p.IsAnonymous())

	assert.Equal(t, []string{"agent", "admin"}, access.MergeRoles([]string{"agent"}, []string{"admin", "agent", ""}))
}

func TestQueueAndTicketTypeGates(t *testing.T) {
	db := testdb.Open(t)

	staff := user.Group{Name: "staff"}
	students := user.Group{Name: "students"}
	require.NoError(t, db.Create(&staff).Error)
	require.NoError(t, db.Create(&students).Error)
	it := queue.Queue{Name: "IT"}
	require.NoError(t, db.Create(&it).Error)
	require.NoError(t, db.Create(&queue.QueuePermission{GroupID: staff.ID, QueueID: it.ID}).Error)

	ok, err := access.CanSubmitToQueue(db, []uint{staff.ID}, it.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = access.CanSubmitToQueue(db, []uint{students.ID}, it.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = access.CanSubmitToQueue(db, nil, it.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	open := ticket.TicketType{QueueID: &it.ID, Name: "General"}
	restricted := ticket.TicketType{QueueID: &it.ID, Name: "Payroll"}
	require.NoError(t, db.Create(&open).Error)
	require.NoError(t, db.Create(&restricted).Error)
	require.NoError(t, db.Create(&ticket.TicketTypeAllowedGroup{TicketTypeID: restricted.ID, GroupID: staff.ID}).Error)

	ok, err = access.TicketTypeAllowed(db, []uint{students.ID}, open.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = access.TicketTypeAllowed(db, []uint{students.ID}, restricted.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = access.TicketTypeAllowed(db, []uint{students.ID, staff.ID}, restricted.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAssignmentLookups(t *testing.T) {
	db := testdb.Open(t)
	q := queue.Queue{Name: "Facilities"}
	require.NoError(t, db.Create(&q).Error)
	manager := constants.AccessManager
	require.NoError(t, db.Create(&queue.AgentAssignment{AgentUserID: 7, QueueID: q.ID, AccessLevel: &manager}).Error)

	a, err := access.AssignmentFor(db, 7, &q.ID)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.True(t, access.IsManager(a))

	a, err = access.AssignmentFor(db, 8, &q.ID)
	require.NoError(t, err)
	assert.Nil(t, a)

	a, err = access.AssignmentFor(db, 7, nil)
	require.NoError(t, err)
	assert.Nil(t, a)

	_, err = access.RequireAssignment(db, 8, &q.ID)
	assert.True(t, errors.Is(err, types.ErrPermissionDenied))

	ids, err := access.AssignedQueueIDs(db, 7)
	require.NoError(t, err)
	assert.Equal(t, []uint{q.ID}, ids)
}

func TestLocalRoles(t *testing.T) {
	db := testdb.Open(t)
	u := user.User{KeycloakID: "kc-1"}
	require.NoError(t, db.Create(&u).Error)

	var agent user.Role
	require.NoError(t, db.Where("name = ?", constants.RoleAgent).First(&agent).Error)
	require.NoError(t, db.Create(&user.UserRole{UserID: u.ID, RoleID: agent.ID}).Error)

	roles, err := access.LocalRoles(db, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{constants.RoleAgent}, roles)
}
