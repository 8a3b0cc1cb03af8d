package ticket

import (
	"errors"
	"fmt"

	"institution-manager/config"
	"institution-manager/constants"
	"institution-manager/logger"
	"institution-manager/middleware"
	queueModel "institution-manager/models/queue"
	ticketModel "institution-manager/models/ticket"
	"institution-manager/services/access"
	"institution-manager/services/customfield"
	"institution-manager/services/movement"
	"institution-manager/types"
	ticketTypes "institution-manager/types/ticket"
	"institution-manager/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// TicketController handles the client side of the ticket flow
type TicketController struct {
	DB       *gorm.DB
	Settings *config.Settings
}

func NewTicketController(db *gorm.DB, settings *config.Settings) *TicketController {
	return &TicketController{
		DB:       db,
		Settings: settings,
	}
}

type ticketOut struct {
	ticketModel.Ticket
	CustomFields []customfield.Typed `json:"custom_fields"`
}

// TypeView is a ticket type as clients see it.
type TypeView struct {
	ID              uint                   `json:"id"`
	QueueID         *uint                  `json:"queue_id"`
	Name            string                 `json:"name"`
	AllowedGroupIDs []uint                 `json:"allowed_group_ids"`
	Fields          []customfield.FieldOut `json:"fields"`
}

// FindTicket loads a ticket or reports "Ticket not found".
func FindTicket(tx *gorm.DB, id uint) (*ticketModel.Ticket, error) {
	var t ticketModel.Ticket
	err := tx.First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NotFound("Ticket not found")
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func present(tx *gorm.DB, t ticketModel.Ticket) (*ticketOut, error) {
	defs, err := customfield.TicketFields.Load(tx, t.TicketTypeID)
	if err != nil {
		return nil, err
	}
	values, err := customfield.TicketFields.Values(tx, t.ID)
	if err != nil {
		return nil, err
	}
	return &ticketOut{Ticket: t, CustomFields: customfield.Present(defs, values)}, nil
}

// Store files a ticket into a queue the caller's groups may post to
func (tc *TicketController) Store(c *fiber.Ctx) error {
	var req ticketTypes.CreateRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return utils.RespondError(c, err)
	}
	caller := middleware.CurrentUser(c)

	var out *ticketOut
	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&queueModel.Queue{}).Where("id = ?", req.QueueID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return types.NotFound("Queue not found")
		}

		groupIDs, err := access.GroupIDs(tx, caller.ID)
		if err != nil {
			return err
		}
		if len(groupIDs) == 0 {
			return types.PermissionDenied("User does not belong to any group allowed to create tickets")
		}
		ok, err := access.CanSubmitToQueue(tx, groupIDs, req.QueueID)
		if err != nil {
			return err
		}
		if !ok {
			return types.PermissionDenied("User groups lack permission to post in this queue")
		}

		if req.TicketTypeID != nil {
			var tt ticketModel.TicketType
			err := tx.First(&tt, *req.TicketTypeID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return types.NotFound("Ticket type not found")
			}
			if err != nil {
				return err
			}
			allowed, err := access.TicketTypeAllowed(tx, groupIDs, tt.ID)
			if err != nil {
				return err
			}
			if !allowed {
				return types.PermissionDenied("User groups not allowed to create this ticket type")
			}
		}

		queueID := req.QueueID
		t := ticketModel.Ticket{
			Subject:        req.Subject,
			Description:    req.Description,
			Status:         constants.TicketNew,
			Priority:       req.Priority,
			ClientUserID:   caller.ID,
			CurrentQueueID: &queueID,
			TicketTypeID:   req.TicketTypeID,
		}
		if err := tx.Create(&t).Error; err != nil {
			return err
		}
		if _, err := customfield.TicketFields.BindAndSave(tx, t.TicketTypeID, t.ID, req.CustomFields); err != nil {
			return err
		}
		if _, err := movement.Record(tx, t.ID, caller.ID, movement.CreateDetails{QueueID: queueID}); err != nil {
			return err
		}
		out, err = present(tx, t)
		return err
	})
	if err != nil {
		return utils.RespondError(c, err)
	}
	logger.Success(fmt.Sprintf("Ticket %d filed into queue %d", out.ID, req.QueueID))
	return utils.Respond(c, fiber.StatusCreated, "Ticket created successfully", out)
}

// Mine lists the tickets the caller opened
func (tc *TicketController) Mine(c *fiber.Ctx) error {
	var tickets []ticketModel.Ticket
	err := tc.DB.Where("client_user_id = ?", middleware.CurrentUser(c).ID).
		Order("created_at DESC").
		Find(&tickets).Error
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Tickets fetched successfully", tickets)
}

// Types lists the ticket types the caller is allowed to create
func (tc *TicketController) Types(c *fiber.Ctx) error {
	queueID, err := utils.QueryID(c, "queue_id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	groupIDs, err := access.GroupIDs(tc.DB, middleware.CurrentUser(c).ID)
	if err != nil {
		return utils.RespondError(c, err)
	}

	q := tc.DB.Model(&ticketModel.TicketType{})
	if queueID != nil {
		q = q.Where("queue_id = ?", *queueID)
	}
	var tts []ticketModel.TicketType
	if err := q.Order("id").Find(&tts).Error; err != nil {
		return utils.RespondError(c, err)
	}

	out := make([]TypeView, 0, len(tts))
	for _, tt := range tts {
		allowed, err := access.TicketTypeAllowed(tc.DB, groupIDs, tt.ID)
		if err != nil {
			return utils.RespondError(c, err)
		}
		if !allowed {
			continue
		}
		item, err := TypeOut(tc.DB, tt)
		if err != nil {
			return utils.RespondError(c, err)
		}
		out = append(out, *item)
	}
	return utils.Respond(c, fiber.StatusOK, "Ticket types fetched successfully", out)
}

// TypeOut renders a ticket type with its allowed groups and fields.
func TypeOut(tx *gorm.DB, tt ticketModel.TicketType) (*TypeView, error) {
	allowed := []uint{}
	err := tx.Model(&ticketModel.TicketTypeAllowedGroup{}).
		Where("ticket_type_id = ?", tt.ID).
		Order("group_id").
		Pluck("group_id", &allowed).Error
	if err != nil {
		return nil, err
	}
	defs, err := customfield.TicketFields.Load(tx, &tt.ID)
	if err != nil {
		return nil, err
	}
	return &TypeView{
		ID:              tt.ID,
		QueueID:         tt.QueueID,
		Name:            tt.Name,
		AllowedGroupIDs: allowed,
		Fields:          customfield.Out(defs),
	}, nil
}

// Show returns a ticket to its creator
func (tc *TicketController) Show(c *fiber.Ctx) error {
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return utils.RespondError(c, err)
	}
	t, err := FindTicket(tc.DB, id)
	if err != nil {
		return utils.RespondError(c, err)
	}
	if t.ClientUserID != middleware.CurrentUser(c).ID {
		return utils.RespondError(c, types.PermissionDenied("Not authorized to view this ticket"))
	}
	out, err := present(tc.DB, *t)
	if err != nil {
		return utils.RespondError(c, err)
	}
	return utils.Respond(c, fiber.StatusOK, "Ticket fetched successfully", out)
}
