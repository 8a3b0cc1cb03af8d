package routes_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"institution-manager/config"
	"institution-manager/constants"
	"institution-manager/database/testdb"
	ticketModel "institution-manager/models/ticket"
	"institution-manager/models/user"
	"institution-manager/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	adminID  uint = 1
	clientID uint = 2
	agentID  uint = 3
	otherID  uint = 4
)

type server struct {
	t       *testing.T
	app     *fiber.App
	db      *gorm.DB
	uploads string
}

func newServer(t *testing.T) *server {
	t.Helper()
	return newServerWith(t, nil)
}

// newServerWith lets a test adjust settings before the routes are built.
func newServerWith(t *testing.T, configure func(*config.Settings)) *server {
	t.Helper()
	db := testdb.Open(t)
	settings := &config.Settings{
		Keycloak: config.Keycloak{
			ServerURL: "http://idp.local",
			Realm:     "campus",
			ClientID:  "institution-client",
			Bypass:    true,
			JWKSTTL:   time.Minute,
		},
		UploadDir: t.TempDir(),
	}
	if configure != nil {
		configure(settings)
	}
	app := fiber.New()
	asyncLogger, err := routes.SetupRoutes(app, db, settings)
	require.NoError(t, err)
	t.Cleanup(asyncLogger.Close)

	for _, id := range []uint{clientID, agentID, otherID} {
		require.NoError(t, db.Create(&user.User{ID: id, KeycloakID: fmt.Sprintf("user-%d", id)}).Error)
	}
	var agentRole user.Role
	require.NoError(t, db.Where("name = ?", constants.RoleAgent).First(&agentRole).Error)
	require.NoError(t, db.Create(&user.UserRole{UserID: agentID, RoleID: agentRole.ID}).Error)

	return &server{t: t, app: app, db: db, uploads: settings.UploadDir}
}

// do sends a JSON request as uid (0 for anonymous) and returns the status and
// the "data" member of the response.
func (s *server) do(method, path string, uid uint, body interface{}) (int, json.RawMessage) {
	s.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(s.t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if uid != 0 {
		req.Header.Set("X-Test-User", fmt.Sprint(uid))
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	var out struct {
		Data json.RawMessage `json:"data"`
	}
	if resp.StatusCode != fiber.StatusNoContent {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out.Data
}

// create sends the request, expects want and returns the new row's id.
func (s *server) create(want int, method, path string, uid uint, body interface{}) uint {
	s.t.Helper()
	status, data := s.do(method, path, uid, body)
	require.Equal(s.t, want, status, string(data))
	var v struct {
		ID uint `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(data, &v))
	require.NotZero(s.t, v.ID)
	return v.ID
}

// helpdesk wires a queue the client may file into and the agent works.
func (s *server) helpdesk() (queueID, typeID uint) {
	queueID = s.create(fiber.StatusCreated, "POST", "/admin/queues", adminID, map[string]interface{}{"name": "IT"})
	groupID := s.create(fiber.StatusCreated, "POST", "/admin/groups", adminID, map[string]interface{}{"name": "Staff"})

	status, _ := s.do("POST", fmt.Sprintf("/admin/groups/%d/users", groupID), adminID, map[string]interface{}{"user_id": clientID})
	require.Equal(s.t, fiber.StatusOK, status)
	status, _ = s.do("POST", "/admin/queue_permissions", adminID, map[string]interface{}{"group_id": groupID, "queue_id": queueID})
	require.Equal(s.t, fiber.StatusOK, status)
	status, _ = s.do("POST", "/admin/agents/assign", adminID, map[string]interface{}{
		"agent_user_id": agentID, "queue_id": queueID, "access_level": constants.AccessTier1,
	})
	require.Equal(s.t, fiber.StatusCreated, status)

	typeID = s.create(fiber.StatusCreated, "POST", "/admin/ticket_types", adminID, map[string]interface{}{
		"queue_id": queueID,
		"name":     "Hardware",
		"fields": []map[string]interface{}{
			{"name": "Kind", "field_type": "select", "options": []string{"laptop", "printer"}},
		},
	})
	return queueID, typeID
}

func TestHealthIsPublic(t *testing.T) {
	s := newServer(t)
	status, _ := s.do("GET", "/health", 0, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestTicketLifecycleIsAudited(t *testing.T) {
	s := newServer(t)
	queueID, typeID := s.helpdesk()

	status, data := s.do("POST", "/tickets", clientID, map[string]interface{}{
		"subject":        "Printer jammed",
		"queue_id":       queueID,
		"ticket_type_id": typeID,
		"custom_fields":  []map[string]interface{}{{"name": "Kind", "value": "printer"}},
	})
	require.Equal(t, fiber.StatusCreated, status, string(data))
	var created struct {
		ID           uint   `json:"id"`
		Status       string `json:"status"`
		CustomFields []struct {
			Name  string      `json:"name"`
			Value interface{} `json:"value"`
		} `json:"custom_fields"`
	}
	require.NoError(t, json.Unmarshal(data, &created))
	assert.Equal(t, constants.TicketNew, created.Status)
	require.Len(t, created.CustomFields, 1)
	assert.Equal(t, "printer", created.CustomFields[0].Value)

	base := fmt.Sprintf("/agents/tickets/%d", created.ID)
	status, _ = s.do("POST", base+"/claim", agentID, nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = s.do("POST", base+"/claim", agentID, nil)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = s.do("POST", base+"/comments", agentID, map[string]interface{}{"comment_text": "on it"})
	require.Equal(t, fiber.StatusCreated, status)
	status, data = s.do("PATCH", base+"/status", agentID, map[string]interface{}{"status": constants.TicketResolved})
	require.Equal(t, fiber.StatusOK, status)
	var resolved ticketModel.Ticket
	require.NoError(t, json.Unmarshal(data, &resolved))
	assert.NotNil(t, resolved.ResolvedAt)

	status, data = s.do("GET", fmt.Sprintf("/tickets/%d/history", created.ID), clientID, nil)
	require.Equal(t, fiber.StatusOK, status)
	var history struct {
		Movements []struct {
			ActionType string                 `json:"action_type"`
			Details    map[string]interface{} `json:"details"`
			ActionUser *struct {
				ID uint `json:"id"`
			} `json:"action_user"`
		} `json:"movements"`
		Comments []struct {
			CommentText string `json:"comment_text"`
		} `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(data, &history))
	var actions []string
	for _, m := range history.Movements {
		actions = append(actions, m.ActionType)
	}
	assert.Equal(t, []string{"CREATE", "CLAIM", "COMMENT", "STATUS_CHANGE"}, actions)
	assert.EqualValues(t, agentID, history.Movements[1].Details["new_agent"])
	require.NotNil(t, history.Movements[1].ActionUser)
	assert.Equal(t, agentID, history.Movements[1].ActionUser.ID)
	require.Len(t, history.Comments, 1)
	assert.Equal(t, "on it", history.Comments[0].CommentText)

	status, _ = s.do("GET", fmt.Sprintf("/tickets/%d/history", created.ID), otherID, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = s.do("GET", fmt.Sprintf("/tickets/%d", created.ID), otherID, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestTicketWithUnknownFieldWritesNothing(t *testing.T) {
	s := newServer(t)
	queueID, typeID := s.helpdesk()

	status, _ := s.do("POST", "/tickets", clientID, map[string]interface{}{
		"subject":        "Broken",
		"queue_id":       queueID,
		"ticket_type_id": typeID,
		"custom_fields":  []map[string]interface{}{{"name": "Kind", "value": "laptop"}, {"name": "Colour", "value": "red"}},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)

	var tickets, values, moves int64
	require.NoError(t, s.db.Model(&ticketModel.Ticket{}).Count(&tickets).Error)
	require.NoError(t, s.db.Model(&ticketModel.TicketFieldValue{}).Count(&values).Error)
	require.NoError(t, s.db.Model(&ticketModel.MovementLog{}).Count(&moves).Error)
	assert.Zero(t, tickets)
	assert.Zero(t, values)
	assert.Zero(t, moves)
}

func TestTicketRequiresQueuePermission(t *testing.T) {
	s := newServer(t)
	queueID, _ := s.helpdesk()

	status, _ := s.do("POST", "/tickets", otherID, map[string]interface{}{"subject": "x", "queue_id": queueID})
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = s.do("POST", "/tickets", clientID, map[string]interface{}{"subject": "x", "queue_id": 999})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAgentRoutesNeedAgentRole(t *testing.T) {
	s := newServer(t)
	status, _ := s.do("GET", "/agents/queues", 0, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, _ = s.do("GET", "/agents/queues", clientID, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, _ = s.do("GET", "/agents/queues", agentID, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestTriageUnavailableWithoutKey(t *testing.T) {
	s := newServer(t)
	status, _ := s.do("POST", "/agents/tickets/1/triage", agentID, nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
}

func TestSpaceBookingConflicts(t *testing.T) {
	s := newServer(t)
	categoryID := s.create(fiber.StatusCreated, "POST", "/activities/categories", adminID, map[string]interface{}{"name": "Lectures"})
	buildingID := s.create(fiber.StatusCreated, "POST", "/logistics/buildings", adminID, map[string]interface{}{"name": "Main"})
	spaceID := s.create(fiber.StatusCreated, "POST", "/logistics/spaces", adminID, map[string]interface{}{"building_id": buildingID, "name": "A1"})

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	activity := func(from, to int) uint {
		return s.create(fiber.StatusCreated, "POST", "/activities", adminID, map[string]interface{}{
			"title":       fmt.Sprintf("%d-%d", from, to),
			"category_id": categoryID,
			"start_time":  day.Add(time.Duration(from) * time.Hour),
			"end_time":    day.Add(time.Duration(to) * time.Hour),
		})
	}
	book := func(activityID uint) int {
		status, _ := s.do("POST", fmt.Sprintf("/activities/%d/space_bookings", activityID), adminID, map[string]interface{}{"space_id": spaceID})
		return status
	}

	morning := activity(10, 12)
	assert.Equal(t, fiber.StatusCreated, book(morning))
	assert.Equal(t, fiber.StatusConflict, book(activity(11, 13)))
	assert.Equal(t, fiber.StatusCreated, book(activity(12, 14)))

	status, _ := s.do("DELETE", fmt.Sprintf("/activities/%d", morning), adminID, nil)
	assert.Equal(t, fiber.StatusForbidden, status, "deleting activities needs the activity-manager role")

	status, _ = s.do("DELETE", fmt.Sprintf("/logistics/spaces/%d", spaceID), adminID, nil)
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestDeleteQueueIsGuarded(t *testing.T) {
	s := newServer(t)
	queueID, _ := s.helpdesk()
	status, _ := s.do("POST", "/tickets", clientID, map[string]interface{}{"subject": "x", "queue_id": queueID})
	require.Equal(t, fiber.StatusCreated, status)

	status, _ = s.do("DELETE", fmt.Sprintf("/admin/queues/%d", queueID), adminID, nil)
	assert.Equal(t, fiber.StatusConflict, status)

	emptyID := s.create(fiber.StatusCreated, "POST", "/admin/queues", adminID, map[string]interface{}{"name": "Empty"})
	status, _ = s.do("DELETE", fmt.Sprintf("/admin/queues/%d", emptyID), adminID, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
}

func TestDeleteTicketTypeInUse(t *testing.T) {
	fileTicket := func(s *server) (typeID, ticketID uint) {
		queueID, typeID := s.helpdesk()
		ticketID = s.create(fiber.StatusCreated, "POST", "/tickets", clientID, map[string]interface{}{
			"subject":        "Laptop fan",
			"queue_id":       queueID,
			"ticket_type_id": typeID,
			"custom_fields":  []map[string]interface{}{{"name": "Kind", "value": "laptop"}},
		})
		return typeID, ticketID
	}

	t.Run("guarded by default", func(t *testing.T) {
		s := newServer(t)
		typeID, ticketID := fileTicket(s)

		status, _ := s.do("DELETE", fmt.Sprintf("/admin/ticket_types/%d", typeID), adminID, nil)
		assert.Equal(t, fiber.StatusConflict, status)

		var tk ticketModel.Ticket
		require.NoError(t, s.db.First(&tk, ticketID).Error)
		require.NotNil(t, tk.TicketTypeID)
		assert.Equal(t, typeID, *tk.TicketTypeID)
		var values int64
		require.NoError(t, s.db.Model(&ticketModel.TicketFieldValue{}).Count(&values).Error)
		assert.EqualValues(t, 1, values)
	})

	t.Run("cascade nulls the reference", func(t *testing.T) {
		s := newServerWith(t, func(settings *config.Settings) { settings.TypeCascadeDelete = true })
		typeID, ticketID := fileTicket(s)

		status, _ := s.do("DELETE", fmt.Sprintf("/admin/ticket_types/%d", typeID), adminID, nil)
		assert.Equal(t, fiber.StatusNoContent, status)

		var tk ticketModel.Ticket
		require.NoError(t, s.db.First(&tk, ticketID).Error)
		assert.Nil(t, tk.TicketTypeID)
		var values, fields int64
		require.NoError(t, s.db.Model(&ticketModel.TicketFieldValue{}).Count(&values).Error)
		require.NoError(t, s.db.Model(&ticketModel.TicketTypeField{}).Count(&fields).Error)
		assert.Zero(t, values)
		assert.Zero(t, fields)

		status, _ = s.do("GET", fmt.Sprintf("/admin/ticket_types/%d", typeID), adminID, nil)
		assert.Equal(t, fiber.StatusNotFound, status)
	})
}

func TestDeleteUserIsGuarded(t *testing.T) {
	s := newServer(t)
	s.helpdesk()

	status, _ := s.do("DELETE", fmt.Sprintf("/admin/users/%d", agentID), adminID, nil)
	assert.Equal(t, fiber.StatusConflict, status, "agent still has an assignment")
	status, _ = s.do("DELETE", fmt.Sprintf("/admin/users/%d", otherID), adminID, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
}

func TestBulkUsersReportsPerRow(t *testing.T) {
	s := newServer(t)
	status, data := s.do("POST", "/admin/users/bulk", adminID, map[string]interface{}{
		"users": []map[string]interface{}{
			{"keycloak_id": "kc-new", "first_name": "Ada", "roles": []string{"agent"}},
			{"first_name": "Nobody"},
			{"keycloak_id": "user-2", "email": "client@example.com"},
		},
	})
	require.Equal(t, fiber.StatusOK, status)
	var out struct {
		Results []struct {
			Row    int    `json:"row"`
			Status string `json:"status"`
			UserID uint   `json:"user_id"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.Results, 3)
	assert.Equal(t, "created", out.Results[0].Status)
	assert.Equal(t, "error", out.Results[1].Status)
	assert.Equal(t, "updated", out.Results[2].Status)
	assert.Equal(t, clientID, out.Results[2].UserID)

	status, data = s.do("GET", fmt.Sprintf("/admin/users/%d/roles", out.Results[0].UserID), adminID, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `["agent"]`, string(data))
}

func TestMeReportsGroups(t *testing.T) {
	s := newServer(t)
	s.helpdesk()

	status, data := s.do("GET", "/me", clientID, nil)
	require.Equal(t, fiber.StatusOK, status)
	var me struct {
		ID       uint   `json:"id"`
		GroupIDs []uint `json:"group_ids"`
	}
	require.NoError(t, json.Unmarshal(data, &me))
	assert.Equal(t, clientID, me.ID)
	assert.Len(t, me.GroupIDs, 1)

	status, data = s.do("GET", "/me", 0, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(data), `"group_ids":[]`)
}

func (s *server) grant(uid uint, role string) {
	s.t.Helper()
	require.NoError(s.t, s.db.Where(user.User{ID: uid}).FirstOrCreate(&user.User{ID: uid, KeycloakID: fmt.Sprintf("user-%d", uid)}).Error)
	var r user.Role
	require.NoError(s.t, s.db.Where("name = ?", role).First(&r).Error)
	require.NoError(s.t, s.db.Create(&user.UserRole{UserID: uid, RoleID: r.ID}).Error)
}

func TestMovingActivityRechecksBookings(t *testing.T) {
	s := newServer(t)
	const managerID uint = 5
	s.grant(managerID, constants.RoleActivityManager)

	categoryID := s.create(fiber.StatusCreated, "POST", "/activities/categories", adminID, map[string]interface{}{"name": "Labs"})
	buildingID := s.create(fiber.StatusCreated, "POST", "/logistics/buildings", adminID, map[string]interface{}{"name": "North"})
	spaceID := s.create(fiber.StatusCreated, "POST", "/logistics/spaces", adminID, map[string]interface{}{"building_id": buildingID, "name": "Lab 2"})

	at := func(hour int) time.Time { return time.Date(2025, 4, 2, hour, 0, 0, 0, time.UTC) }
	booked := func(from, to int) uint {
		id := s.create(fiber.StatusCreated, "POST", "/activities", adminID, map[string]interface{}{
			"title": "lab", "category_id": categoryID, "start_time": at(from), "end_time": at(to),
		})
		status, _ := s.do("POST", fmt.Sprintf("/activities/%d/space_bookings", id), adminID, map[string]interface{}{"space_id": spaceID})
		require.Equal(t, fiber.StatusCreated, status)
		return id
	}
	booked(9, 11)
	later := booked(13, 15)

	path := fmt.Sprintf("/activities/%d", later)
	status, _ := s.do("PATCH", path, managerID, map[string]interface{}{"start_time": at(10), "end_time": at(12)})
	assert.Equal(t, fiber.StatusConflict, status)
	status, _ = s.do("PATCH", path, managerID, map[string]interface{}{"start_time": at(11), "end_time": at(12)})
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = s.do("PATCH", path, managerID, map[string]interface{}{"end_time": at(10)})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestSpaceTemplateFieldsAndDeleteGuard(t *testing.T) {
	s := newServer(t)
	buildingID := s.create(fiber.StatusCreated, "POST", "/logistics/buildings", adminID, map[string]interface{}{"name": "East"})
	templateID := s.create(fiber.StatusCreated, "POST", "/logistics/space_templates", adminID, map[string]interface{}{
		"name":   "Classroom",
		"fields": []map[string]interface{}{{"name": "Projector", "field_type": "boolean"}},
	})

	status, _ := s.do("POST", "/logistics/spaces", adminID, map[string]interface{}{
		"building_id": buildingID, "name": "E1", "space_template_id": templateID,
		"custom_fields": []map[string]interface{}{{"name": "Projector", "value": "maybe"}},
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = s.do("POST", "/logistics/spaces", adminID, map[string]interface{}{"building_id": 999, "name": "E2"})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, data := s.do("POST", "/logistics/spaces", adminID, map[string]interface{}{
		"building_id": buildingID, "name": "E1", "space_template_id": templateID,
		"custom_fields": []map[string]interface{}{{"name": "Projector", "value": "yes"}},
	})
	require.Equal(t, fiber.StatusCreated, status, string(data))
	assert.Contains(t, string(data), `"value":true`)

	status, _ = s.do("DELETE", fmt.Sprintf("/logistics/space_templates/%d", templateID), adminID, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	status, _ = s.do("POST", "/logistics/space_templates", clientID, map[string]interface{}{"name": "Lab"})
	assert.Equal(t, fiber.StatusForbidden, status)
}

func (s *server) upload(ticketID, uid uint, name, content string) int {
	s.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(s.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(s.t, err)
	require.NoError(s.t, w.Close())

	req := httptest.NewRequest("POST", fmt.Sprintf("/attachments/upload?ticket_id=%d", ticketID), &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Test-User", fmt.Sprint(uid))
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestAttachmentUpload(t *testing.T) {
	s := newServer(t)
	queueID, _ := s.helpdesk()
	ticketID := s.create(fiber.StatusCreated, "POST", "/tickets", clientID, map[string]interface{}{"subject": "Scanner", "queue_id": queueID})

	assert.Equal(t, fiber.StatusCreated, s.upload(ticketID, clientID, "scan.png", "png"))
	assert.Equal(t, fiber.StatusCreated, s.upload(ticketID, agentID, "log.txt", "trace"))
	assert.Equal(t, fiber.StatusForbidden, s.upload(ticketID, otherID, "x.txt", "x"))
	assert.Equal(t, fiber.StatusNotFound, s.upload(999, clientID, "x.txt", "x"))

	var stored []ticketModel.Attachment
	require.NoError(t, s.db.Order("id").Find(&stored).Error)
	require.Len(t, stored, 2)
	assert.Equal(t, "scan.png", stored[0].FileName)
	assert.FileExists(t, stored[0].FilePath)

	// a failed insert must not leave the file behind
	require.NoError(t, s.db.Migrator().DropTable(&ticketModel.Attachment{}))
	assert.Equal(t, fiber.StatusInternalServerError, s.upload(ticketID, clientID, "late.txt", "late"))
	entries, err := os.ReadDir(s.uploads)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
