package handlers

import (
	"github.com/gofiber/fiber/v2"

	"multiplication-shooter/middleware"
	"multiplication-shooter/services"
	"multiplication-shooter/utils"
)

type createSessionRequest struct {
	StartedAt    string `json:"started_at" validate:"required"`
	CanvasWidth  *int   `json:"canvas_width" validate:"required,min=1,max=10000"`
	CanvasHeight *int   `json:"canvas_height" validate:"required,min=1,max=10000"`
}

type finishSessionRequest struct {
	FinishedAt      string `json:"finished_at" validate:"required"`
	FinalScore      *int   `json:"final_score" validate:"required,min=0"`
	MaxLevelReached *int   `json:"max_level_reached" validate:"required,min=1"`
	DurationSeconds *int   `json:"duration_seconds" validate:"required,min=0,max=600"`
}

type recordShotRequest struct {
	ShotAt        string   `json:"shot_at" validate:"required"`
	CoordinateX   *float64 `json:"coordinate_x" validate:"required,min=0,max=1200"`
	CoordinateY   *float64 `json:"coordinate_y" validate:"required,min=0,max=800"`
	Factor1       *int     `json:"factor_1" validate:"required,min=1,max=12"`
	Factor2       *int     `json:"factor_2" validate:"required,min=1,max=12"`
	CorrectAnswer *int     `json:"correct_answer" validate:"required,min=0,max=144"`
	CardValue     *int     `json:"card_value" validate:"required,min=0,max=144"`
	IsCorrect     *bool    `json:"is_correct" validate:"required"`
}

type SessionHandler struct {
	sessions *services.SessionService
	ledger   *services.ShotLedger
}

func SetupSessionRoutes(router fiber.Router, sessions *services.SessionService, ledger *services.ShotLedger) {
	h := &SessionHandler{sessions: sessions, ledger: ledger}

	router.Get("/", h.List)
	router.Post("/", h.Create)
	router.Get("/:id", h.Detail)
	router.Put("/:id/finish", h.Finish)
	router.Post("/:id/shots", h.RecordShot)
}

func (h *SessionHandler) List(c *fiber.Ctx) error {
	page, err := h.sessions.List(c.UserContext(), middleware.Actor(c), c.QueryInt("page", 1))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       page.Sessions,
		"pagination": page.Pagination,
	})
}

func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req createSessionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	startedAt, err := parseTimestamp("started_at", req.StartedAt)
	if err != nil {
		return err
	}

	session, err := h.sessions.Create(c.UserContext(), middleware.Actor(c), services.CreateSessionInput{
		StartedAt:    startedAt,
		CanvasWidth:  *req.CanvasWidth,
		CanvasHeight: *req.CanvasHeight,
	})
	if err != nil {
		return err
	}
	return utils.Success(c, fiber.StatusCreated, session)
}

func (h *SessionHandler) Detail(c *fiber.Ctx) error {
	detail, err := h.sessions.Detail(c.UserContext(), middleware.Actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return utils.Success(c, fiber.StatusOK, detail)
}

func (h *SessionHandler) Finish(c *fiber.Ctx) error {
	var req finishSessionRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	finishedAt, err := parseTimestamp("finished_at", req.FinishedAt)
	if err != nil {
		return err
	}

	finished, err := h.sessions.Finish(c.UserContext(), middleware.Actor(c), c.Params("id"), services.FinishSessionInput{
		FinishedAt:      finishedAt,
		FinalScore:      *req.FinalScore,
		MaxLevelReached: *req.MaxLevelReached,
		DurationSeconds: *req.DurationSeconds,
	})
	if err != nil {
		return err
	}
	return utils.Success(c, fiber.StatusOK, finished)
}

func (h *SessionHandler) RecordShot(c *fiber.Ctx) error {
	var req recordShotRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	shotAt, err := parseTimestamp("shot_at", req.ShotAt)
	if err != nil {
		return err
	}

	shot, err := h.ledger.Record(c.UserContext(), middleware.Actor(c), c.Params("id"), services.RecordShotInput{
		ShotAt:        shotAt,
		CoordinateX:   *req.CoordinateX,
		CoordinateY:   *req.CoordinateY,
		Factor1:       *req.Factor1,
		Factor2:       *req.Factor2,
		CorrectAnswer: *req.CorrectAnswer,
		CardValue:     *req.CardValue,
		IsCorrect:     *req.IsCorrect,
	})
	if err != nil {
		return err
	}
	return utils.Success(c, fiber.StatusCreated, shot)
}
