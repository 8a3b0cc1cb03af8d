package admin

import (
	"errors"

	queueModel "institution-manager/models/queue"
	ticketModel "institution-manager/models/ticket"
	userModel "institution-manager/models/user"
	"institution-manager/types"
	adminTypes "institution-manager/types/admin"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CreateGroup adds a user group
func (ac *AdminController) CreateGroup(c *fiber.Ctx) error {
	var req adminTypes.GroupCreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	var n int64
	if err := ac.DB.Model(&userModel.Group{}).Where("name = ?", req.Name).Count(&n).Error; err != nil {
		return utils.RespondError(c, err)
	}
	if n > 0 {
		return utils.RespondError(c, types.Conflict("Group name already exists"))
	}
	g := userModel.Group{Name: req.Name, Description: req.Description}
	if err := ac.DB.Create(&g).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "Group created successfully", g)
}

// ListGroups returns every group
func (ac *AdminController) ListGroups(c *fiber.Ctx) error {
	var groups []userModel.Group
	if err := ac.DB.Order("id").Find(&groups).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Groups fetched successfully", groups)
}

// GroupMembers lists the members of a group
func (ac *AdminController) GroupMembers(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var users []userModel.User
	err = ac.DB.Joins("JOIN user_groups ug ON ug.user_id = users.id").
		Where("ug.group_id = ?", id).
		Order("users.id").
		Find(&users).Error
	if err != nil {
		return utils.RespondError(c, err)
	}
	out := make([]userModel.Minimal, 0, len(users))
	for _, u := range users {
		out = append(out, u.Minimal())
	}
	return utils.Respond(c, fiber.StatusOK, "Members fetched successfully", out)
}

// AddGroupMember puts a user in a group. Adding an existing member is a no-op.
func (ac *AdminController) AddGroupMember(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req adminTypes.UserGroupAssignRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var link userModel.UserGroup
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		var g userModel.Group
		err := tx.First(&g, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NotFound("Group not found")
		}
		if err != nil {
			return err
		}
		if _, err := findUser(tx, req.UserID); err != nil {
			return err
		}
		link = userModel.UserGroup{UserID: req.UserID, GroupID: g.ID}
		return tx.Where(link).FirstOrCreate(&link).Error
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "User added to group", link)
}

// RemoveGroupMember takes a user out of a group
func (ac *AdminController) RemoveGroupMember(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	userID, err := utils.ParamID(c, "user_id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	res := ac.DB.Where("group_id = ? AND user_id = ?", id, userID).Delete(&userModel.UserGroup{})
	if res.Error != nil {
		return utils.RespondError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.RespondError(c, types.NotFound("Membership not found"))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func findQueue(tx *gorm.DB, id uint) (*queueModel.Queue, error) {
	var q queueModel.Queue
	err := tx.First(&q, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("Queue not found")
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateQueue adds a queue
func (ac *AdminController) CreateQueue(c *fiber.Ctx) error {
	var req adminTypes.QueueCreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	q := queueModel.Queue{Name: req.Name, Description: req.Description}
	if err := ac.DB.Create(&q).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "Queue created successfully", q)
}

// ListQueues returns every queue
func (ac *AdminController) ListQueues(c *fiber.Ctx) error {
	var queues []queueModel.Queue
	if err := ac.DB.Order("id").Find(&queues).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Queues fetched successfully", queues)
}

// GetQueue returns one queue
func (ac *AdminController) GetQueue(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	q, err := findQueue(ac.DB, id)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Queue fetched successfully", q)
}

// UpdateQueue applies the provided queue fields
func (ac *AdminController) UpdateQueue(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req adminTypes.QueueUpdateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	q, err := findQueue(ac.DB, id)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if req.Name != nil {
		q.Name = *req.Name
	}
	if req.Description != nil {
		q.Description = req.Description
	}
	if err := ac.DB.Save(q).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Queue updated successfully", q)
}

// DeleteQueue removes a queue. Tickets or ticket types in the queue block the
// delete unless cascading is enabled, in which case their queue is cleared.
// Permissions and agent assignments go with the queue.
func (ac *AdminController) DeleteQueue(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}

	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		q, err := findQueue(tx, id)
		if err != nil {
			return err
		}
		var tickets, ticketTypes int64
		if err := tx.Model(&ticketModel.Ticket{}).Where("current_queue_id = ?", id).Count(&tickets).Error; err != nil {
			return err
		}
		if err := tx.Model(&ticketModel.TicketType{}).Where("queue_id = ?", id).Count(&ticketTypes).Error; err != nil {
			return err
		}
		if tickets+ticketTypes > 0 {
			if !ac.Settings.TypeCascadeDelete {
				return types.IntegrityGuard("Cannot delete queue with existing tickets or ticket types")
			}
			if err := tx.Model(&ticketModel.Ticket{}).Where("current_queue_id = ?", id).Update("current_queue_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Model(&ticketModel.TicketType{}).Where("queue_id = ?", id).Update("queue_id", nil).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("queue_id = ?", id).Delete(&queueModel.QueuePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("queue_id = ?", id).Delete(&queueModel.AgentAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(q).Error
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListQueuePermissions returns every group-to-queue grant
func (ac *AdminController) ListQueuePermissions(c *fiber.Ctx) error {
	var perms []queueModel.QueuePermission
	if err := ac.DB.Order("id").Find(&perms).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Queue permissions fetched successfully", perms)
}

// AssignQueuePermission lets a group file into a queue. Repeating a grant
// returns the existing one.
func (ac *AdminController) AssignQueuePermission(c *fiber.Ctx) error {
	var req adminTypes.QueuePermissionRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	var perm queueModel.QueuePermission
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := findQueue(tx, req.QueueID); err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&userModel.Group{}).Where("id = ?", req.GroupID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return types.NotFound("Group not found")
		}
		perm = queueModel.QueuePermission{GroupID: req.GroupID, QueueID: req.QueueID}
		return tx.Where(perm).FirstOrCreate(&perm).Error
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Queue permission assigned", perm)
}

// RemoveQueuePermission revokes a group-to-queue grant
func (ac *AdminController) RemoveQueuePermission(c *fiber.Ctx) error {
	var req adminTypes.QueuePermissionRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	res := ac.DB.Where("group_id = ? AND queue_id = ?", req.GroupID, req.QueueID).Delete(&queueModel.QueuePermission{})
	if res.Error != nil {
		return utils.RespondError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.RespondError(c, types.NotFound("Permission not found"))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListAgentAssignments returns every agent-to-queue assignment
func (ac *AdminController) ListAgentAssignments(c *fiber.Ctx) error {
	var assignments []queueModel.AgentAssignment
	if err := ac.DB.Order("id").Find(&assignments).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Agent assignments fetched successfully", assignments)
}

// AssignAgent puts an agent on a queue. An existing assignment has its access
// level and transfer flag updated.
func (ac *AdminController) AssignAgent(c *fiber.Ctx) error {
	var req adminTypes.AgentAssignmentRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}

	var assignment queueModel.AgentAssignment
	status := fiber.StatusOK
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := findUser(tx, req.AgentUserID); err != nil {
			return err
		}
		if _, err := findQueue(tx, req.QueueID); err != nil {
			return err
		}
		var level *string
		if req.AccessLevel != "" {
			level = &req.AccessLevel
		}
		res := tx.Where("agent_user_id = ? AND queue_id = ?", req.AgentUserID, req.QueueID).Limit(1).Find(&assignment)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			status = fiber.StatusCreated
			assignment = queueModel.AgentAssignment{AgentUserID: req.AgentUserID, QueueID: req.QueueID}
		}
		assignment.AccessLevel = level
		assignment.AllowTransfer = req.AllowTransfer
		return tx.Save(&assignment).Error
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, status, "Agent assigned", assignment)
}

// UnassignAgent removes an agent assignment by id
func (ac *AdminController) UnassignAgent(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	res := ac.DB.Delete(&queueModel.AgentAssignment{}, id)
	if res.Error != nil {
		return utils.RespondError(c, res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.RespondError(c, types.NotFound("Assignment not found"))
	}
	return c.SendStatus(fiber.StatusNoContent)
}
