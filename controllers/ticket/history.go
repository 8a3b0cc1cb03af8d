package ticket

import (
	"time"

	"institution-manager/constants"
	"institution-manager/logger"
	"institution-manager/middleware"
	ticketModel "institution-manager/models/ticket"
	userModel "institution-manager/models/user"
	"institution-manager/services/access"
	"institution-manager/services/movement"
	"institution-manager/types"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type movementOut struct {
	ID         uint               `json:"id"`
	TicketID   uint               `json:"ticket_id"`
	Timestamp  time.Time          `json:"timestamp"`
	ActionUser *userModel.Minimal `json:"action_user"`
	ActionType string             `json:"action_type"`
	Details    movement.Details   `json:"details"`
}

type commentOut struct {
	ID          uint               `json:"id"`
	TicketID    uint               `json:"ticket_id"`
	Author      *userModel.Minimal `json:"author"`
	CommentText string             `json:"comment_text"`
	IsInternal  bool               `json:"is_internal"`
	CreatedAt   time.Time          `json:"created_at"`
}

type attachmentOut struct {
	ID        uint               `json:"id"`
	TicketID  uint               `json:"ticket_id"`
	CommentID *uint              `json:"comment_id"`
	FileName  string             `json:"file_name"`
	FilePath  string             `json:"file_path"`
	Uploader  *userModel.Minimal `json:"uploader"`
}

type historyOut struct {
	TicketID    uint            `json:"ticket_id"`
	Movements   []movementOut   `json:"movements"`
	Comments    []commentOut    `json:"comments"`
	Attachments []attachmentOut `json:"attachments"`
}

// History returns the audit trail, comments and attachments of a ticket.
// The creator, any agent of the ticket's queue and admins may read it.
func (tc *TicketController) History(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	caller := middleware.CurrentUser(c)

	t, err := FindTicket(tc.DB, id)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if t.ClientUserID != caller.ID && !caller.HasRole(constants.RoleAdmin) {
		assignment, err := access.AssignmentFor(tc.DB, caller.ID, t.CurrentQueueID)
		if err != nil {
			return utils.RespondError(c, err)
		}
		if assignment == nil {
			return utils.RespondError(c, types.PermissionDenied("Not authorized to view this ticket history"))
		}
	}

	var (
		moves    []ticketModel.MovementLog
		comments []ticketModel.TicketComment
		files    []ticketModel.Attachment
	)
	if err := tc.DB.Where("ticket_id = ?", id).Order("timestamp, id").Find(&moves).Error; err != nil {
		return utils.RespondError(c, err)
	}
	if err := tc.DB.Where("ticket_id = ?", id).Order("created_at, id").Find(&comments).Error; err != nil {
		return utils.RespondError(c, err)
	}
	if err := tc.DB.Where("ticket_id = ?", id).Order("id").Find(&files).Error; err != nil {
		return utils.RespondError(c, err)
	}

	var userIDs []uint
	for _, m := range moves {
		userIDs = append(userIDs, m.ActionUserID)
	}
	for _, cm := range comments {
		userIDs = append(userIDs, cm.AuthorUserID)
	}
	for _, f := range files {
		userIDs = append(userIDs, f.UploaderUserID)
	}
	people, err := minimalUsers(tc.DB, userIDs)
	if err != nil {
		return utils.RespondError(c, err)
	}

	out := historyOut{
		TicketID:    t.ID,
		Movements:   make([]movementOut, 0, len(moves)),
		Comments:    make([]commentOut, 0, len(comments)),
		Attachments: make([]attachmentOut, 0, len(files)),
	}
	for _, m := range moves {
		details, err := movement.Decode(m.ActionType, m.Details)
		if err != nil {
			logger.Warning(err.Error())
		}
		out.Movements = append(out.Movements, movementOut{
			ID:         m.ID,
			TicketID:   m.TicketID,
			Timestamp:  m.Timestamp,
			ActionUser: people[m.ActionUserID],
			ActionType: m.ActionType,
			Details:    details,
		})
	}
	for _, cm := range comments {
		out.Comments = append(out.Comments, commentOut{
			ID:          cm.ID,
			TicketID:    cm.TicketID,
			Author:      people[cm.AuthorUserID],
			CommentText: cm.CommentText,
			IsInternal:  cm.IsInternal,
			CreatedAt:   cm.CreatedAt,
		})
	}
	for _, f := range files {
		out.Attachments = append(out.Attachments, attachmentOut{
			ID:        f.ID,
			TicketID:  f.TicketID,
			CommentID: f.CommentID,
			FileName:  f.FileName,
			FilePath:  f.FilePath,
			Uploader:  people[f.UploaderUserID],
		})
	}
	return utils.Respond(c, fiber.StatusOK, "Ticket history fetched successfully", out)
}

// minimalUsers loads every referenced user in one query.
func minimalUsers(tx *gorm.DB, ids []uint) (map[uint]*userModel.Minimal, error) {
	out := map[uint]*userModel.Minimal{}
	if len(ids) == 0 {
		return out, nil
	}
	var users []userModel.User
	if err := tx.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		m := u.Minimal()
		out[u.ID] = &m
	}
	return out, nil
}
