package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"multiplication-shooter/models"
	"multiplication-shooter/utils"
)

// RosterResult summarizes one roster import. Errors holds one message per
// rejected row.
type RosterResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"error_details"`
}

type rosterColumns struct {
	email, group, name, lastname int
}

func (c rosterColumns) required() int {
	if c.email > c.group {
		return c.email
	}
	return c.group
}

// RosterImporter provisions users from an admin-supplied CSV before they
// ever log in. Rows are matched on email.
type RosterImporter struct {
	DB       *gorm.DB
	validate *validator.Validate
	log      *zap.Logger
}

func NewRosterImporter(db *gorm.DB, log *zap.Logger) *RosterImporter {
	return &RosterImporter{DB: db, validate: validator.New(), log: log.Named("roster")}
}

// Import reads a CSV with at least the email and group columns (name and
// lastname optional, any order). Existing emails get their group updated,
// plus name and lastname when those columns exist; new emails become
// students with no external id. Bad rows are reported and skipped; the rest
// commit together.
func (ri *RosterImporter) Import(ctx context.Context, data []byte) (*RosterResult, error) {
	reader := utils.NewCSVReader(bytes.NewReader(data))

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalidField("file", "El CSV está vacío")
		}
		return nil, invalidField("file", "CSV ilegible: %v", err)
	}
	cols, ok := rosterHeader(header)
	if !ok {
		return nil, invalidField("file", "El CSV debe contener las columnas: email, group")
	}

	result := &RosterResult{Errors: []string{}}
	err = ri.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			// Row numbers are file line numbers, so the header is line 1.
			if err != nil {
				line := 0
				var parseErr *csv.ParseError
				if errors.As(err, &parseErr) {
					line = parseErr.Line
				}
				result.Errors = append(result.Errors, fmt.Sprintf("Fila %d: Formato inválido", line))
				continue
			}
			line, _ := reader.FieldPos(0)
			if err := ri.importRow(tx, cols, row, line, result); err != nil {
				return err
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("import roster: %w", err)
	}

	ri.log.Info("roster imported",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (ri *RosterImporter) importRow(tx *gorm.DB, cols rosterColumns, row []string, rowNum int, result *RosterResult) error {
	if blankRow(row) {
		return nil
	}
	if len(row) <= cols.required() {
		result.Errors = append(result.Errors, fmt.Sprintf("Fila %d: Formato inválido", rowNum))
		return nil
	}

	email := strings.TrimSpace(row[cols.email])
	group := strings.TrimSpace(row[cols.group])
	name, hasName := optionalCell(row, cols.name)
	lastname, hasLastname := optionalCell(row, cols.lastname)

	if email == "" {
		return nil
	}
	if err := ri.validate.Var(email, "required,email"); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Fila %d: Email inválido (%s)", rowNum, email))
		return nil
	}

	var user models.User
	err := tx.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{"group_name": models.StringPtr(group)}
		if hasName {
			updates["name"] = models.StringPtr(name)
		}
		if hasLastname {
			updates["lastname"] = models.StringPtr(lastname)
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		result.Updated++
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	user = models.User{
		ID:       uuid.NewString(),
		Email:    email,
		Group:    models.StringPtr(group),
		Role:     models.RoleStudent,
		Name:     models.StringPtr(name),
		Lastname: models.StringPtr(lastname),
	}
	if err := tx.Create(&user).Error; err != nil {
		return err
	}
	result.Created++
	return nil
}

func rosterHeader(header []string) (rosterColumns, bool) {
	cols := rosterColumns{email: -1, group: -1, name: -1, lastname: -1}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "email":
			if cols.email < 0 {
				cols.email = i
			}
		case "group":
			if cols.group < 0 {
				cols.group = i
			}
		case "name":
			if cols.name < 0 {
				cols.name = i
			}
		case "lastname":
			if cols.lastname < 0 {
				cols.lastname = i
			}
		}
	}
	return cols, cols.email >= 0 && cols.group >= 0
}

func optionalCell(row []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(row) {
		return "", false
	}
	return strings.TrimSpace(row[idx]), true
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
