package services

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiplication-shooter/models"
)

func TestSummarizeScoresWithoutFinishedSessions(t *testing.T) {
	active := models.GameSession{StartedAt: t0, FinalScore: 50}

	for _, sessions := range [][]models.GameSession{nil, {active}} {
		s := SummarizeScores(sessions)
		assert.Zero(t, s.FinishedSessions)
		assert.Nil(t, s.AvgScore)
		assert.Nil(t, s.BestScore)
		assert.Nil(t, s.LastPlayedAt)
		assert.Nil(t, s.FirstPlayedAt)
	}
}

func TestSummarizeScoresCountsFinishedOnly(t *testing.T) {
	done := t0.Add(time.Hour)
	sessions := []models.GameSession{
		{StartedAt: t0, FinishedAt: &done, FinalScore: 10, DurationSeconds: 60},
		{StartedAt: t0.Add(2 * time.Hour), FinishedAt: &done, FinalScore: 25, DurationSeconds: 90},
		{StartedAt: t0.Add(time.Hour), FinishedAt: &done, FinalScore: 11, DurationSeconds: 30},
		{StartedAt: t0.Add(5 * time.Hour), FinalScore: 500},
	}

	s := SummarizeScores(sessions)
	assert.Equal(t, 3, s.FinishedSessions)
	require.NotNil(t, s.AvgScore)
	assert.Equal(t, 15.3, *s.AvgScore)
	assert.Equal(t, 25, *s.BestScore)
	assert.True(t, s.LastPlayedAt.Equal(t0.Add(2*time.Hour)))
	assert.True(t, s.FirstPlayedAt.Equal(t0))
	assert.Equal(t, int64(180), s.TotalDurationSeconds)
}

func TestGroupsAreDistinctSortedAndNonEmpty(t *testing.T) {
	f := newFixture(t)
	createUser(t, f.db, "a@example.com", models.RoleStudent, "6B")
	createUser(t, f.db, "b@example.com", models.RoleStudent, "5A")
	createUser(t, f.db, "c@example.com", models.RoleStudent, "6B")
	createUser(t, f.db, "d@example.com", models.RoleTeacher, "")

	groups, err := f.reports.Groups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"5A", "6B"}, groups)
}

func TestListUsersAggregatesAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ana := createUser(t, f.db, "ana@example.com", models.RoleStudent, "5A")
	luis := createUser(t, f.db, "luis@example.com", models.RoleStudent, "5A")
	createUser(t, f.db, "profe@example.com", models.RoleTeacher, "5A")
	createUser(t, f.db, "otro@example.com", models.RoleStudent, "6B")

	s1 := f.startSession(t, ana, t0)
	f.finish(t, ana, s1.ID, 40)
	s2 := f.startSession(t, ana, t0.Add(time.Hour))
	f.finish(t, ana, s2.ID, 61)
	f.startSession(t, ana, t0.Add(2*time.Hour))

	page, err := f.reports.ListUsers(ctx, UserFilter{Group: "5A", Profile: "student", SortBy: "sessions_count", Order: "desc"}, 1, 0)
	require.NoError(t, err)
	require.Len(t, page.Users, 2)
	assert.Equal(t, int64(2), page.Pagination.Total)
	assert.Equal(t, 40, page.Pagination.PerPage)

	first := page.Users[0]
	assert.Equal(t, ana.ID, first.ID)
	assert.Equal(t, int64(3), first.SessionsCount)
	assert.Equal(t, 50.5, *first.AvgScore)
	assert.Equal(t, 61, *first.BestScore)
	assert.True(t, first.LastPlayedAt.Equal(t0.Add(time.Hour)))

	second := page.Users[1]
	assert.Equal(t, luis.ID, second.ID)
	assert.Zero(t, second.SessionsCount)
	assert.Nil(t, second.AvgScore)
	assert.Nil(t, second.BestScore)
	assert.Nil(t, second.LastPlayedAt)
}

func TestListUsersSearchIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	createUser(t, f.db, "Ana.Garcia@example.com", models.RoleStudent, "5A")
	createUser(t, f.db, "luis@example.com", models.RoleStudent, "5A")

	page, err := f.reports.ListUsers(context.Background(), UserFilter{Search: "garcia"}, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Users, 1)
	assert.Equal(t, "Ana.Garcia@example.com", page.Users[0].Email)
}

func TestUserSessionsSummaryAndRowNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := createUser(t, f.db, "ana@example.com", models.RoleStudent, "5A")

	day1 := f.startSession(t, ana, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	f.shoot(t, ana, day1.ID, true)
	f.finish(t, ana, day1.ID, 30)
	day2 := f.startSession(t, ana, time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC))
	f.finish(t, ana, day2.ID, 45)
	f.startSession(t, ana, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC))

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	report, err := f.reports.UserSessions(ctx, ana.ID, SessionFilter{DateFrom: &from, DateTo: &to}, 1, 1)
	require.NoError(t, err)

	assert.Equal(t, ana.ID, report.User.ID)
	assert.Equal(t, int64(2), report.Pagination.Total)
	assert.Equal(t, 2, report.Pagination.LastPage)
	require.Len(t, report.Sessions, 1)
	assert.Equal(t, 1, report.Sessions[0].RowNumber)
	assert.Equal(t, day2.ID, report.Sessions[0].ID)

	assert.Equal(t, 2, report.Summary.TotalSessions)
	assert.Equal(t, 37.5, report.Summary.AvgScore)
	assert.Equal(t, 45, report.Summary.BestScore)
	assert.Equal(t, 6.0, report.Summary.TotalPlaytimeMinutes)

	page2, err := f.reports.UserSessions(ctx, ana.ID, SessionFilter{DateFrom: &from, DateTo: &to}, 2, 1)
	require.NoError(t, err)
	require.Len(t, page2.Sessions, 1)
	assert.Equal(t, 2, page2.Sessions[0].RowNumber)
	assert.Equal(t, int64(1), page2.Sessions[0].TotalShots)
	assert.Equal(t, 100.0, page2.Sessions[0].Accuracy)
}

func TestUserSessionsForUserWithoutSessions(t *testing.T) {
	f := newFixture(t)
	ana := createUser(t, f.db, "ana@example.com", models.RoleStudent, "")

	report, err := f.reports.UserSessions(context.Background(), ana.ID, SessionFilter{}, 1, 0)
	require.NoError(t, err)
	assert.Empty(t, report.Sessions)
	assert.Equal(t, SessionsSummary{}, report.Summary)
	assert.Nil(t, report.Pagination.From)

	_, err = f.reports.UserSessions(context.Background(), "missing", SessionFilter{}, 1, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportUsersCSV(t *testing.T) {
	f := newFixture(t)
	ana := createUser(t, f.db, "ana@example.com", models.RoleStudent, "5A")
	s := f.startSession(t, ana, t0)
	f.finish(t, ana, s.ID, 42)

	var buf bytes.Buffer
	n, err := f.reports.ExportUsers(context.Background(), &buf, UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Email,Nombre,Apellido,Perfil,Grupo,Sesiones,Promedio,Mejor Puntuacion,Ultima Sesion,Fecha Registro", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "ana@example.com,Test,,student,5A,1,42.0,42,2026-03-02 10:00,"), lines[1])
}

func TestExportUserSessionsCSV(t *testing.T) {
	f := newFixture(t)
	f.reports.now = func() time.Time { return time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC) }
	ana := createUser(t, f.db, "ana@example.com", models.RoleStudent, "")

	s := f.startSession(t, ana, t0)
	f.shoot(t, ana, s.ID, true)
	f.shoot(t, ana, s.ID, false)
	f.shoot(t, ana, s.ID, false)
	f.finish(t, ana, s.ID, 42)

	var buf bytes.Buffer
	user, err := f.reports.ExportUserSessions(context.Background(), &buf, ana.ID, SessionFilter{})
	require.NoError(t, err)
	assert.Equal(t, ana.ID, user.ID)

	want := strings.Join([]string{
		"# Sesiones de: Test (ana@example.com)",
		"# Grupo: N/A",
		"# Exportado: 2026-03-05 12:00:00",
		"#",
		"Numero,Fecha,Hora,Puntuacion,Nivel Maximo,Disparos Totales,Aciertos,Errores,Precision,Duracion (seg)",
		"1,2026-03-02,10:00:00,42,2,3,1,2,33.33%,180",
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}
