package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"multiplication-shooter/models"
	"multiplication-shooter/services"
	"multiplication-shooter/utils"
)

const maxRosterUpload = 2 * 1024 * 1024

type AdminHandler struct {
	reports *services.ReportingService
	roster  *services.RosterImporter
	now     func() time.Time
}

func SetupAdminRoutes(router fiber.Router, reports *services.ReportingService, roster *services.RosterImporter) {
	h := &AdminHandler{reports: reports, roster: roster, now: time.Now}

	router.Get("/groups", h.Groups)
	router.Get("/users", h.ListUsers)
	router.Get("/users/export", h.ExportUsers)
	router.Post("/users/upload-csv", h.UploadRoster)
	router.Get("/users/:id/sessions", h.UserSessions)
	router.Get("/users/:id/sessions/export", h.ExportUserSessions)
}

func (h *AdminHandler) Groups(c *fiber.Ctx) error {
	groups, err := h.reports.Groups(c.UserContext())
	if err != nil {
		return err
	}
	return utils.Success(c, fiber.StatusOK, groups)
}

func userFilter(c *fiber.Ctx) (services.UserFilter, error) {
	f := services.UserFilter{
		Group:   c.Query("group"),
		Profile: c.Query("profile"),
		Search:  c.Query("search"),
		SortBy:  c.Query("sort_by", "created_at"),
		Order:   c.Query("order", "desc"),
	}
	if f.Profile != "" && !models.Role(f.Profile).Valid() {
		return f, &services.ValidationError{Fields: []services.FieldError{{Field: "profile", Message: "must be one of student, teacher, admin"}}}
	}
	return f, nil
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	f, err := userFilter(c)
	if err != nil {
		return err
	}
	page, err := h.reports.ListUsers(c.UserContext(), f, c.QueryInt("page", 1), c.QueryInt("per_page", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"data":       page.Users,
		"pagination": page.Pagination,
		"filters_applied": fiber.Map{
			"group":   nullable(f.Group),
			"profile": nullable(f.Profile),
			"search":  nullable(f.Search),
		},
	})
}

func sessionFilter(c *fiber.Ctx) (services.SessionFilter, error) {
	from, err := parseDate("date_from", c.Query("date_from"))
	if err != nil {
		return services.SessionFilter{}, err
	}
	to, err := parseDate("date_to", c.Query("date_to"))
	if err != nil {
		return services.SessionFilter{}, err
	}
	return services.SessionFilter{DateFrom: from, DateTo: to}, nil
}

func (h *AdminHandler) UserSessions(c *fiber.Ctx) error {
	f, err := sessionFilter(c)
	if err != nil {
		return err
	}

	report, err := h.reports.UserSessions(c.UserContext(), c.Params("id"), f, c.QueryInt("page", 1), c.QueryInt("per_page", 0))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"user":       report.User,
		"summary":    report.Summary,
		"data":       report.Sessions,
		"pagination": report.Pagination,
		"filters_applied": fiber.Map{
			"date_from": nullable(c.Query("date_from")),
			"date_to":   nullable(c.Query("date_to")),
		},
	})
}

func (h *AdminHandler) UploadRoster(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return &services.ValidationError{Fields: []services.FieldError{{Field: "file", Message: "is required"}}}
	}

	data, err := utils.ReadUpload(fileHeader, maxRosterUpload, ".csv", ".txt")
	switch {
	case errors.Is(err, utils.ErrFileTooLarge):
		return &services.ValidationError{Fields: []services.FieldError{{Field: "file", Message: "must not be larger than 2 MiB"}}}
	case errors.Is(err, utils.ErrFileType):
		return &services.ValidationError{Fields: []services.FieldError{{Field: "file", Message: "must be a .csv or .txt file"}}}
	case err != nil:
		return err
	}

	result, err := h.roster.Import(c.UserContext(), data)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "import completed",
		"stats": fiber.Map{
			"created": result.Created,
			"updated": result.Updated,
			"errors":  len(result.Errors),
		},
		"error_details": result.Errors,
	})
}

func (h *AdminHandler) ExportUsers(c *fiber.Ctx) error {
	f, err := userFilter(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := h.reports.ExportUsers(c.UserContext(), &buf, f); err != nil {
		return err
	}
	return sendCSV(c, utils.ExportFilename("usuarios", "", h.now(), "2006-01-02_15-04-05"), buf.Bytes())
}

func (h *AdminHandler) ExportUserSessions(c *fiber.Ctx) error {
	f, err := sessionFilter(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	user, err := h.reports.ExportUserSessions(c.UserContext(), &buf, c.Params("id"), f)
	if err != nil {
		return err
	}
	return sendCSV(c, utils.ExportFilename("sesiones", user.Email, h.now(), "2006-01-02"), buf.Bytes())
}

func sendCSV(c *fiber.Ctx, filename string, body []byte) error {
	c.Set(fiber.HeaderContentType, "text/csv; charset=UTF-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Status(fiber.StatusOK).Send(body)
}

// nullable echoes an unset query value as JSON null.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
