package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"multiplication-shooter/models"
)

var (
	usersExportHeader = []string{
		"Email", "Nombre", "Apellido", "Perfil", "Grupo", "Sesiones",
		"Promedio", "Mejor Puntuacion", "Ultima Sesion", "Fecha Registro",
	}
	sessionsExportHeader = []string{
		"Numero", "Fecha", "Hora", "Puntuacion", "Nivel Maximo",
		"Disparos Totales", "Aciertos", "Errores", "Precision", "Duracion (seg)",
	}
)

// ExportUsers writes every user matching f as CSV, newest first.
func (r *ReportingService) ExportUsers(ctx context.Context, w io.Writer, f UserFilter) (int, error) {
	var users []models.User
	if err := r.filteredUsers(ctx, f).Order("created_at DESC").Order("id").Find(&users).Error; err != nil {
		return 0, fmt.Errorf("load users for export: %w", err)
	}

	rows, err := r.userRows(ctx, users)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(usersExportHeader); err != nil {
		return 0, err
	}
	for _, row := range rows {
		var (
			avg  float64
			best int
			last string
		)
		if row.AvgScore != nil {
			avg = *row.AvgScore
		}
		if row.BestScore != nil {
			best = *row.BestScore
		}
		if row.LastPlayedAt != nil {
			last = row.LastPlayedAt.UTC().Format("2006-01-02 15:04")
		}
		record := []string{
			row.Email,
			deref(row.Name),
			deref(row.Lastname),
			string(row.Role),
			deref(row.Group),
			strconv.FormatInt(row.SessionsCount, 10),
			strconv.FormatFloat(avg, 'f', 1, 64),
			strconv.Itoa(best),
			last,
			row.CreatedAt.UTC().Format("2006-01-02"),
		}
		if err := cw.Write(record); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(rows), cw.Error()
}

// ExportUserSessions writes one user's sessions as CSV, preceded by a
// commented header block. Active sessions are included.
func (r *ReportingService) ExportUserSessions(ctx context.Context, w io.Writer, userID string, f SessionFilter) (*models.User, error) {
	user, err := r.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	var sessions []models.GameSession
	if err := r.filteredSessions(ctx, userID, f).Order("started_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("load sessions for export: %w", err)
	}

	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	stats, err := r.Ledger.StatsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	group := "N/A"
	if user.Group != nil {
		group = *user.Group
	}
	_, err = fmt.Fprintf(w, "# Sesiones de: %s (%s)\n# Grupo: %s\n# Exportado: %s\n#\n",
		user.FullName(), user.Email, group, r.now().UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return nil, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(sessionsExportHeader); err != nil {
		return nil, err
	}
	for i, s := range sessions {
		st := stats[s.ID]
		started := s.StartedAt.UTC()
		record := []string{
			strconv.Itoa(i + 1),
			started.Format("2006-01-02"),
			started.Format("15:04:05"),
			strconv.Itoa(s.FinalScore),
			strconv.Itoa(s.MaxLevelReached),
			strconv.FormatInt(st.TotalShots, 10),
			strconv.FormatInt(st.CorrectShots, 10),
			strconv.FormatInt(st.WrongShots, 10),
			fmt.Sprintf("%.2f%%", st.Accuracy),
			strconv.Itoa(s.DurationSeconds),
		}
		if err := cw.Write(record); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return user, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
