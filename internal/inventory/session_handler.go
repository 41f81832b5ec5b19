package inventory

import (
	"fmt"
	"time"

	"avault-backend/internal/audit"
	"avault-backend/internal/auth"
	"avault-backend/internal/database"
	"avault-backend/internal/httputil"
	"avault-backend/internal/logging"
	"avault-backend/internal/models"
	"avault-backend/internal/reconcile"

	"github.com/gofiber/fiber/v2"
)

type SessionResponse struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	TermID        *uint   `json:"term_id"`
	Term          string  `json:"term"`
	Date          string  `json:"date"`
	ConductedByID *uint   `json:"conducted_by_id"`
	IsComplete    bool    `json:"is_complete"`
	Notes         string  `json:"notes"`
	ImportID      string  `json:"import_id,omitempty"`
	ItemsCounted  int64   `json:"items_counted"`
	TotalItems    int64   `json:"total_items"`
	Completion    float64 `json:"completion_percentage"`
}

type CreateSessionRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Date  string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Term  string `json:"term" validate:"max=50"`
	Notes string `json:"notes"`
}

type CountRequest struct {
	Quantity *int   `json:"quantity" validate:"required,gte=0"`
	Notes    string `json:"notes"`
}

type CountResponse struct {
	ItemID    uint   `json:"item_id"`
	Item      string `json:"item"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes"`
	CountedAt string `json:"counted_at"`
}

func toSessionResponse(s models.InventorySession, counted, total int64) SessionResponse {
	r := SessionResponse{
		ID:            s.ID,
		Name:          s.Name,
		TermID:        s.TermID,
		Date:          s.Date.Format("2006-01-02"),
		ConductedByID: s.ConductedByID,
		IsComplete:    s.IsComplete,
		Notes:         s.Notes,
		ImportID:      s.ImportID,
		ItemsCounted:  counted,
		TotalItems:    total,
	}
	switch {
	case s.Term != nil:
		r.Term = s.Term.Name
	case s.TermSeason != "":
		r.Term = models.TermName(s.TermSeason, s.TermYear)
	}
	if total > 0 {
		r.Completion = float64(counted) * 100 / float64(total)
	}
	return r
}

// GET /api/sessions?complete=true
func ListSessionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		db := database.DB.WithContext(c.UserContext())

		dbq := db.Preload("Term")
		switch c.Query("complete") {
		case "true":
			dbq = dbq.Where("is_complete = ?", true)
		case "false":
			dbq = dbq.Where("is_complete = ?", false)
		}
		var sessions []models.InventorySession
		if err := dbq.Order("date DESC, id DESC").Find(&sessions).Error; err != nil {
			return err
		}

		type tally struct {
			SessionID uint
			N         int64
		}
		var tallies []tally
		if err := db.Model(&models.InventoryCount{}).Select("session_id, COUNT(*) AS n").Group("session_id").Scan(&tallies).Error; err != nil {
			return err
		}
		counted := make(map[uint]int64, len(tallies))
		for _, t := range tallies {
			counted[t.SessionID] = t.N
		}
		var total int64
		if err := db.Model(&models.Item{}).Count(&total).Error; err != nil {
			return err
		}

		res := make([]SessionResponse, 0, len(sessions))
		for _, s := range sessions {
			res = append(res, toSessionResponse(s, counted[s.ID], total))
		}
		return c.JSON(res)
	}
}

// POST /api/sessions
func CreateSessionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSessionRequest
		if err := httputil.Bind(c, &body); err != nil {
			return err
		}
		uid, uname := auth.CurrentUser(c)

		in := NewSession{Name: body.Name, Term: body.Term, Notes: body.Notes, ConductedByID: uid}
		if body.Date != "" {
			d, err := time.Parse("2006-01-02", body.Date)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
			}
			in.Date = d
		}

		s, err := CreateSession(c.UserContext(), database.DB, in)
		if err != nil {
			return err
		}
		logAudit(c, audit.LogOptions{
			UserID: uid, UserName: uname,
			EntityType: audit.EntitySession, EntityID: s.ID,
			Action:      models.AuditActionCreate,
			Description: "started session " + s.Name,
			After:       s,
		})

		var total int64
		database.DB.WithContext(c.UserContext()).Model(&models.Item{}).Count(&total)
		return c.Status(fiber.StatusCreated).JSON(toSessionResponse(s, 0, total))
	}
}

// GET /api/sessions/:id
func GetSessionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		db := database.DB.WithContext(c.UserContext())
		s, err := loadSession(c.UserContext(), database.DB, id)
		if err != nil {
			return err
		}
		var counted, total int64
		db.Model(&models.InventoryCount{}).Where("session_id = ?", id).Count(&counted)
		db.Model(&models.Item{}).Count(&total)
		return c.JSON(toSessionResponse(s, counted, total))
	}
}

// GET /api/sessions/:id/counts
func ListSessionCountsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		if _, err := loadSession(c.UserContext(), database.DB, id); err != nil {
			return err
		}

		var counts []models.InventoryCount
		err = database.DB.WithContext(c.UserContext()).
			Preload("Item").Preload("Item.Category").
			Where("session_id = ?", id).
			Find(&counts).Error
		if err != nil {
			return err
		}

		res := make([]CountResponse, 0, len(counts))
		for _, ct := range counts {
			res = append(res, CountResponse{
				ItemID:    ct.ItemID,
				Item:      ct.Item.Name,
				Category:  ct.Item.Category.Name,
				Quantity:  ct.Quantity,
				Notes:     ct.Notes,
				CountedAt: ct.CountedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return c.JSON(res)
	}
}

// PUT /api/sessions/:id/counts/:item_id
func SubmitCountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		itemID, err := httputil.ParamID(c, "item_id")
		if err != nil {
			return err
		}
		var body CountRequest
		if err := httputil.Bind(c, &body); err != nil {
			return err
		}
		uid, _ := auth.CurrentUser(c)

		ct, err := SubmitCount(c.UserContext(), database.DB, sessionID, itemID, CountInput{
			Quantity:    *body.Quantity,
			Notes:       body.Notes,
			CountedByID: uid,
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"item_id":    ct.ItemID,
			"session_id": ct.SessionID,
			"quantity":   ct.Quantity,
			"notes":      ct.Notes,
		})
	}
}

// POST /api/sessions/:id/complete
func CompleteSessionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		uid, uname := auth.CurrentUser(c)

		res, err := CompleteSession(c.UserContext(), database.DB, id, uid)
		if err != nil {
			return err
		}
		logAudit(c, audit.LogOptions{
			UserID: uid, UserName: uname,
			EntityType: audit.EntitySession, EntityID: id,
			Action: models.AuditActionUpdate,
			Description: fmt.Sprintf("completed session %s (%d ledger rows created, %d updated)",
				res.Session.Name, res.Promoted.Created, res.Promoted.Updated),
			After: res.Promoted,
		})

		var counted, total int64
		database.DB.WithContext(c.UserContext()).Model(&models.InventoryCount{}).Where("session_id = ?", id).Count(&counted)
		database.DB.WithContext(c.UserContext()).Model(&models.Item{}).Count(&total)
		return c.JSON(fiber.Map{
			"session":  toSessionResponse(res.Session, counted, total),
			"promoted": res.Promoted,
		})
	}
}

// DELETE /api/sessions/:id
func DeleteSessionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		uid, uname := auth.CurrentUser(c)

		s, reverted, err := DeleteSession(c.UserContext(), database.DB, id)
		if err != nil {
			return err
		}
		logAudit(c, audit.LogOptions{
			UserID: uid, UserName: uname,
			EntityType: audit.EntitySession, EntityID: id,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("deleted session %s, removed %d and restored %d ledger rows", s.Name, reverted.Removed, reverted.Restored),
			Before:      s,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/sessions/:id/reconcile
func ReconcileSessionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httputil.ParamID(c, "id")
		if err != nil {
			return err
		}
		res, err := reconcile.New(database.DB, logging.GetLogger()).Reconcile(c.UserContext(), id)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// logAudit writes an audit entry outside the change's transaction. A failed
// write is logged, the request still succeeds.
func logAudit(c *fiber.Ctx, opts audit.LogOptions) {
	if err := audit.WriteLog(c.UserContext(), database.DB, opts); err != nil {
		logging.LogError(logging.GetLogger(), "inventory", "logAudit", opts.EntityType, opts.Description, err)
	}
}
