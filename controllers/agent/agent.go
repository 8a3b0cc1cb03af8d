package agent

import (
	"errors"
	"fmt"
	"time"

	"institution-manager/config"
	"institution-manager/constants"
	ticketController "institution-manager/controllers/ticket"
	"institution-manager/database"
	"institution-manager/httpServices/gemini"
	"institution-manager/logger"
	"institution-manager/middleware"
	queueModel "institution-manager/models/queue"
	ticketModel "institution-manager/models/ticket"
	userModel "institution-manager/models/user"
	"institution-manager/services/access"
	"institution-manager/services/movement"
	"institution-manager/types"
	ticketTypes "institution-manager/types/ticket"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AgentController handles the agent side of the ticket flow. Every write
// locks the ticket row and records its movement in the same transaction.
type AgentController struct {
	DB       *gorm.DB
	Settings *config.Settings
	Gemini   *gemini.TriageClient
}

func NewAgentController(db *gorm.DB, settings *config.Settings, triage *gemini.TriageClient) *AgentController {
	return &AgentController{
		DB:       db,
		Settings: settings,
		Gemini:   triage,
	}
}

// lockTicket reads a ticket for update
func lockTicket(tx *gorm.DB, id uint) (*ticketModel.Ticket, error) {
	return ticketController.FindTicket(database.LockForUpdate(tx), id)
}

// Queues lists the queues the caller is assigned to
func (ac *AgentController) Queues(c *fiber.Ctx) error {
	ids, err := access.AssignedQueueIDs(ac.DB, middleware.CurrentUser(c).ID)
	if err != nil {
		return utils.RespondError(c, err)
	}
	queues := []queueModel.Queue{}
	if len(ids) > 0 {
		if err := ac.DB.Where("id IN ?", ids).Order("id").Find(&queues).Error; err != nil {
			return utils.RespondError(c, err)
		}
	}
	return utils.Respond(c, fiber.StatusOK, "Queues fetched successfully", queues)
}

// Tickets lists tickets in the caller's queues
func (ac *AgentController) Tickets(c *fiber.Ctx) error {
	caller := middleware.CurrentUser(c)
	ids, err := access.AssignedQueueIDs(ac.DB, caller.ID)
	if err != nil {
		return utils.RespondError(c, err)
	}
	queueID, err := utils.QueryID(c, "queue_id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	if queueID != nil && !containsID(ids, *queueID) {
		return utils.RespondError(c, types.PermissionDenied("Not assigned to this queue"))
	}

	tickets := []ticketModel.Ticket{}
	if len(ids) == 0 {
		return utils.Respond(c, fiber.StatusOK, "Tickets fetched successfully", tickets)
	}
	q := ac.DB.Where("current_queue_id IN ?", ids)
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if priority := c.Query("priority"); priority != "" {
		q = q.Where("priority = ?", priority)
	}
	if c.QueryBool("unassigned") {
		q = q.Where("current_agent_id IS NULL")
	}
	if queueID != nil {
		q = q.Where("current_queue_id = ?", *queueID)
	}
	if err := q.Order("created_at").Find(&tickets).Error; err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Tickets fetched successfully", tickets)
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Claim takes an unowned ticket in one of the caller's queues
func (ac *AgentController) Claim(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	caller := middleware.CurrentUser(c)

	var claimed *ticketModel.Ticket
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		t, err := lockTicket(tx, id)
		if err != nil {
			return err
		}
		assignment, err := access.AssignmentFor(tx, caller.ID, t.CurrentQueueID)
		if err != nil {
			return err
		}
		if err := access.CheckClaim(assignment, t); err != nil {
			return err
		}
		agentID := caller.ID
		t.CurrentAgentID = &agentID
		if err := tx.Save(t).Error; err != nil {
			return err
		}
		if _, err := movement.Record(tx, t.ID, caller.ID, movement.ClaimDetails{NewAgent: caller.ID}); err != nil {
			return err
		}
		claimed = t
		return nil
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	logger.Success(fmt.Sprintf("Ticket %d claimed by agent %d", claimed.ID, caller.ID))
	return utils.Respond(c, fiber.StatusOK, "Ticket claimed successfully", claimed)
}

// Assign hands a ticket to another agent. The caller must rank at least as
// high as the target in the ticket's queue, unless the caller is a Manager.
func (ac *AgentController) Assign(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req ticketTypes.AssignRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	caller := middleware.CurrentUser(c)

	var assigned *ticketModel.Ticket
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		t, err := lockTicket(tx, id)
		if err != nil {
			return err
		}
		mine, err := access.AssignmentFor(tx, caller.ID, t.CurrentQueueID)
		if err != nil {
			return err
		}
		if mine == nil {
			return types.PermissionDenied("Acting agent not assigned to this queue")
		}

		var target userModel.User
		err = tx.First(&target, req.TargetAgentID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.NotFound("Target agent not found")
		}
		if err != nil {
			return err
		}
		theirs, err := access.AssignmentFor(tx, target.ID, t.CurrentQueueID)
		if err != nil {
			return err
		}
		if !access.CanAssign(mine, theirs) {
			return types.PermissionDenied("Insufficient access to assign to that agent")
		}

		old := t.CurrentAgentID
		newAgent := target.ID
		t.CurrentAgentID = &newAgent
		if err := tx.Save(t).Error; err != nil {
			return err
		}
		if _, err := movement.Record(tx, t.ID, caller.ID, movement.AssignDetails{OldAgent: old, NewAgent: newAgent}); err != nil {
			return err
		}
		assigned = t
		return nil
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Ticket assigned successfully", assigned)
}

// Transfer moves a ticket to another queue and clears its agent
func (ac *AgentController) Transfer(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req ticketTypes.TransferRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	caller := middleware.CurrentUser(c)

	var moved *ticketModel.Ticket
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		t, err := lockTicket(tx, id)
		if err != nil {
			return err
		}
		mine, err := access.AssignmentFor(tx, caller.ID, t.CurrentQueueID)
		if err != nil {
			return err
		}
		if mine == nil {
			return types.PermissionDenied("Acting agent not assigned to this queue")
		}
		if !access.CanTransfer(mine) {
			return types.PermissionDenied("Insufficient access to transfer ticket")
		}

		var n int64
		if err := tx.Model(&queueModel.Queue{}).Where("id = ?", req.TargetQueueID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return types.NotFound("Target queue not found")
		}

		details := movement.TransferDetails{OldQueue: t.CurrentQueueID, NewQueue: req.TargetQueueID}
		if req.Reason != nil {
			details.Reason = *req.Reason
		}
		target := req.TargetQueueID
		t.CurrentQueueID = &target
		t.CurrentAgentID = nil
		if err := tx.Save(t).Error; err != nil {
			return err
		}
		if _, err := movement.Record(tx, t.ID, caller.ID, details); err != nil {
			return err
		}
		moved = t
		return nil
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Ticket transferred successfully", moved)
}

// Status changes a ticket's status. Moving to Resolved stamps resolved_at
// when the request does not carry one.
func (ac *AgentController) Status(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req ticketTypes.StatusChangeRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	caller := middleware.CurrentUser(c)

	var changed *ticketModel.Ticket
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		t, err := lockTicket(tx, id)
		if err != nil {
			return err
		}
		if _, err := access.RequireAssignment(tx, caller.ID, t.CurrentQueueID); err != nil {
			return err
		}

		old := t.Status
		t.Status = req.Status
		switch {
		case req.ResolvedAt != nil:
			at := req.ResolvedAt.UTC()
			t.ResolvedAt = &at
		case req.Status == constants.TicketResolved && t.ResolvedAt == nil:
			at := time.Now().UTC()
			t.ResolvedAt = &at
		}
		if err := tx.Save(t).Error; err != nil {
			return err
		}
		if _, err := movement.Record(tx, t.ID, caller.ID, movement.StatusChangeDetails{OldStatus: old, NewStatus: req.Status}); err != nil {
			return err
		}
		changed = t
		return nil
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Ticket status updated successfully", changed)
}

// Comment adds a comment to a ticket in one of the caller's queues
func (ac *AgentController) Comment(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	var req ticketTypes.CommentRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	caller := middleware.CurrentUser(c)

	var comment ticketModel.TicketComment
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		t, err := ticketController.FindTicket(tx, id)
		if err != nil {
			return err
		}
		if _, err := access.RequireAssignment(tx, caller.ID, t.CurrentQueueID); err != nil {
			return err
		}
		comment = ticketModel.TicketComment{
			TicketID:     t.ID,
			AuthorUserID: caller.ID,
			CommentText:  req.CommentText,
			IsInternal:   req.IsInternal,
		}
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		_, err = movement.Record(tx, t.ID, caller.ID, movement.CommentDetails{CommentID: comment.ID, IsInternal: req.IsInternal})
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, "Comment added successfully", comment)
}

// Triage asks Gemini for a priority suggestion. Nothing is written.
func (ac *AgentController) Triage(c *fiber.Ctx) error {
	if !ac.Gemini.Enabled() {
		return utils.Respond(c, fiber.StatusServiceUnavailable, "Triage is not configured", nil)
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	t, err := ticketController.FindTicket(ac.DB, id)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if _, err := access.RequireAssignment(ac.DB, middleware.CurrentUser(c).ID, t.CurrentQueueID); err != nil {
		return utils.RespondError(c, err)
	}

	suggestion, err := ac.Gemini.SuggestPriority(c.UserContext(), t.Subject, t.Description)
	if err != nil {
		logger.Error("Triage failed for ticket "+fmt.Sprint(t.ID), err)
		return utils.Respond(c, fiber.StatusBadGateway, "Failed to get triage suggestion", nil)
	}
	return utils.Respond(c, fiber.StatusOK, "Triage suggestion generated", suggestion)
}
