package attachment

import (
	"errors"

	"institution-manager/constants"
	ticketController "institution-manager/controllers/ticket"
	"institution-manager/logger"
	"institution-manager/middleware"
	ticketModel "institution-manager/models/ticket"
	"institution-manager/services/access"
	"institution-manager/services/storage"
	"institution-manager/types"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AttachmentController struct {
	DB      *gorm.DB
	Storage *storage.LocalStorage
}

func NewAttachmentController(db *gorm.DB, store *storage.LocalStorage) *AttachmentController {
	return &AttachmentController{
		DB:      db,
		Storage: store,
	}
}

// Upload stores a multipart "file" against a ticket, optionally tied to one
// of its comments. The creator, agents of the ticket's queue and admins may upload.
func (ac *AttachmentController) Upload(c *fiber.Ctx) error {
	ticketID, err := utils.QueryID(c, "ticket_id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	if ticketID == nil {
		return utils.RespondError(c, types.Validation("ticket_id is required"))
	}
	commentID, err := utils.QueryID(c, "comment_id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	caller := middleware.CurrentUser(c)

	t, err := ticketController.FindTicket(ac.DB, *ticketID)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if t.ClientUserID != caller.ID && !caller.HasRole(constants.RoleAdmin) {
		assignment, err := access.AssignmentFor(ac.DB, caller.ID, t.CurrentQueueID)
		if err != nil {
			return utils.RespondError(c, err)
		}
		if assignment == nil {
			return utils.RespondError(c, types.PermissionDenied("Not authorized to attach files to this ticket"))
		}
	}
	if commentID != nil {
		var comment ticketModel.TicketComment
		err := ac.DB.Where("id = ? AND ticket_id = ?", *commentID, t.ID).First(&comment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.RespondError(c, types.NotFound("Comment not found"))
		}
		if err != nil {
			return utils.RespondError(c, err)
		}
	}

	header, err := c.FormFile("file")
	if err != nil {
		return utils.RespondError(c, types.Validation("file is required"))
	}
	src, err := header.Open()
	if err != nil {
		return utils.RespondError(c, err)
	}
	defer src.Close()

	path, err := ac.Storage.Save(src, header.Filename)
	if errors.Is(err, storage.ErrInvalidName) {
		return utils.RespondError(c, types.Validation("Invalid file name"))
	}
	if err != nil {
		return utils.RespondError(c, err)
	}

	attachment := ticketModel.Attachment{
		TicketID:       t.ID,
		CommentID:      commentID,
		FileName:       header.Filename,
		FilePath:       path,
		UploaderUserID: caller.ID,
	}
	if err := ac.DB.Create(&attachment).Error; err != nil {
		if rmErr := ac.Storage.Remove(path); rmErr != nil {
			logger.Error("Failed to remove orphaned attachment "+path, rmErr)
		}
		return utils.RespondError(c, err)
	}
	logger.Success("Attachment stored: " + path)
	return utils.Respond(c, fiber.StatusCreated, "Attachment uploaded successfully", attachment)
}
