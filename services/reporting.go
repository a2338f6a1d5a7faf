package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"multiplication-shooter/models"
)

const (
	adminUsersPerPage    = 40
	adminSessionsPerPage = 10
)

// ScoreSummary aggregates the finished sessions of one set. Active sessions
// never count; pointer fields stay nil when there are none.
type ScoreSummary struct {
	FinishedSessions     int
	AvgScore             *float64
	BestScore            *int
	FirstPlayedAt        *time.Time
	LastPlayedAt         *time.Time
	TotalDurationSeconds int64
}

// SummarizeScores is the one aggregate used by every report and export.
func SummarizeScores(sessions []models.GameSession) ScoreSummary {
	var (
		out   ScoreSummary
		total int64
	)
	for i := range sessions {
		s := &sessions[i]
		if s.IsActive() {
			continue
		}
		out.FinishedSessions++
		total += int64(s.FinalScore)
		out.TotalDurationSeconds += int64(s.DurationSeconds)

		if out.BestScore == nil || s.FinalScore > *out.BestScore {
			best := s.FinalScore
			out.BestScore = &best
		}
		if out.LastPlayedAt == nil || s.StartedAt.After(*out.LastPlayedAt) {
			started := s.StartedAt
			out.LastPlayedAt = &started
		}
		if out.FirstPlayedAt == nil || s.StartedAt.Before(*out.FirstPlayedAt) {
			started := s.StartedAt
			out.FirstPlayedAt = &started
		}
	}
	if out.FinishedSessions > 0 {
		avg := models.RoundTo(float64(total)/float64(out.FinishedSessions), 1)
		out.AvgScore = &avg
	}
	return out
}

// UserFilter narrows the admin user list and export.
type UserFilter struct {
	Group   string
	Profile string
	Search  string
	SortBy  string
	Order   string
}

type UserListRow struct {
	models.User
	SessionsCount int64      `json:"sessions_count"`
	AvgScore      *float64   `json:"avg_score"`
	BestScore     *int       `json:"best_score"`
	LastPlayedAt  *time.Time `json:"last_played_at"`
}

type UserPage struct {
	Users      []UserListRow `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// SessionFilter bounds started_at by calendar day, both ends inclusive.
type SessionFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
}

// SessionsSummary is the admin view of a user's finished sessions. Unlike
// ScoreSummary it reports zeros instead of nulls.
type SessionsSummary struct {
	TotalSessions        int        `json:"total_sessions"`
	AvgScore             float64    `json:"avg_score"`
	BestScore            int        `json:"best_score"`
	TotalPlaytimeMinutes float64    `json:"total_playtime_minutes"`
	FirstSession         *time.Time `json:"first_session"`
	LastSession          *time.Time `json:"last_session"`
}

type UserSessionRow struct {
	RowNumber int `json:"row_number"`
	SessionWithStats
}

type UserSessionsReport struct {
	User       models.User      `json:"user"`
	Summary    SessionsSummary  `json:"summary"`
	Sessions   []UserSessionRow `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// ReportingService serves the read-only admin views. All figures are derived
// on read from sessions and shots.
type ReportingService struct {
	DB     *gorm.DB
	Ledger *ShotLedger
	log    *zap.Logger
	now    func() time.Time
}

func NewReportingService(db *gorm.DB, ledger *ShotLedger, log *zap.Logger) *ReportingService {
	return &ReportingService{DB: db, Ledger: ledger, log: log.Named("reporting"), now: time.Now}
}

// Groups lists the distinct non-empty group labels, sorted.
func (r *ReportingService) Groups(ctx context.Context) ([]string, error) {
	groups := []string{}
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("group_name IS NOT NULL AND group_name <> ''").
		Distinct().
		Order("group_name").
		Pluck("group_name", &groups).Error
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

var userSortColumns = map[string]string{
	"email":          "email",
	"name":           "name",
	"group":          "group_name",
	"created_at":     "created_at",
	"sessions_count": "(SELECT COUNT(*) FROM game_sessions WHERE game_sessions.user_id = users.id)",
}

func (r *ReportingService) filteredUsers(ctx context.Context, f UserFilter) *gorm.DB {
	q := r.DB.WithContext(ctx).Model(&models.User{})
	if f.Group != "" {
		q = q.Where("group_name = ?", f.Group)
	}
	if f.Profile != "" {
		q = q.Where("role = ?", f.Profile)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(lastname) LIKE ? OR LOWER(email) LIKE ?)", like, like, like)
	}
	return q
}

func userOrder(f UserFilter) string {
	dir := "DESC"
	if strings.EqualFold(f.Order, "asc") {
		dir = "ASC"
	}
	col, ok := userSortColumns[f.SortBy]
	if !ok {
		return "created_at DESC"
	}
	return col + " " + dir
}

// ListUsers is the paginated admin user list with per-user score aggregates.
func (r *ReportingService) ListUsers(ctx context.Context, f UserFilter, page, perPage int) (*UserPage, error) {
	p := NewPageRequest(page, perPage, adminUsersPerPage)

	var total int64
	if err := r.filteredUsers(ctx, f).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	var users []models.User
	err := r.filteredUsers(ctx, f).
		Order(userOrder(f)).
		Order("id").
		Limit(p.PerPage).
		Offset(p.Offset()).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	rows, err := r.userRows(ctx, users)
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: rows, Pagination: p.Result(total, len(rows))}, nil
}

func (r *ReportingService) userRows(ctx context.Context, users []models.User) ([]UserListRow, error) {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	counts, err := r.sessionCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	finished, err := r.finishedSessionsByUser(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]UserListRow, len(users))
	for i, u := range users {
		summary := SummarizeScores(finished[u.ID])
		rows[i] = UserListRow{
			User:          u,
			SessionsCount: counts[u.ID],
			AvgScore:      summary.AvgScore,
			BestScore:     summary.BestScore,
			LastPlayedAt:  summary.LastPlayedAt,
		}
	}
	return rows, nil
}

// sessionCounts counts all sessions, active included, per user.
func (r *ReportingService) sessionCounts(ctx context.Context, userIDs []string) (map[string]int64, error) {
	out := make(map[string]int64, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		UserID string
		Total  int64
	}
	err := r.DB.WithContext(ctx).Model(&models.GameSession{}).
		Select("user_id, COUNT(*) AS total").
		Where("user_id IN ?", userIDs).
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count sessions per user: %w", err)
	}
	for _, row := range rows {
		out[row.UserID] = row.Total
	}
	return out, nil
}

func (r *ReportingService) finishedSessionsByUser(ctx context.Context, userIDs []string) (map[string][]models.GameSession, error) {
	out := make(map[string][]models.GameSession, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var sessions []models.GameSession
	err := r.DB.WithContext(ctx).
		Where("user_id IN ? AND finished_at IS NOT NULL", userIDs).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("load finished sessions: %w", err)
	}
	for _, s := range sessions {
		out[s.UserID] = append(out[s.UserID], s)
	}
	return out, nil
}

func (r *ReportingService) filteredSessions(ctx context.Context, userID string, f SessionFilter) *gorm.DB {
	q := r.DB.WithContext(ctx).Model(&models.GameSession{}).Where("user_id = ?", userID)
	if f.DateFrom != nil {
		q = q.Where("started_at >= ?", startOfDay(*f.DateFrom))
	}
	if f.DateTo != nil {
		q = q.Where("started_at < ?", startOfDay(*f.DateTo).AddDate(0, 0, 1))
	}
	return q
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// UserSessions is the admin drill-down into one user's sessions, newest
// first, with a summary over the filtered finished sessions.
func (r *ReportingService) UserSessions(ctx context.Context, userID string, f SessionFilter, page, perPage int) (*UserSessionsReport, error) {
	user, err := r.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := NewPageRequest(page, perPage, adminSessionsPerPage)

	var total int64
	if err := r.filteredSessions(ctx, userID, f).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count user sessions: %w", err)
	}

	var sessions []models.GameSession
	err = r.filteredSessions(ctx, userID, f).
		Order("started_at DESC").
		Limit(p.PerPage).
		Offset(p.Offset()).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}

	var finished []models.GameSession
	if err := r.filteredSessions(ctx, userID, f).Where("finished_at IS NOT NULL").Find(&finished).Error; err != nil {
		return nil, fmt.Errorf("load finished sessions: %w", err)
	}

	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	stats, err := r.Ledger.StatsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]UserSessionRow, len(sessions))
	for i, s := range sessions {
		rows[i] = UserSessionRow{
			RowNumber:        p.Offset() + i + 1,
			SessionWithStats: SessionWithStats{GameSession: s, ShotStats: stats[s.ID]},
		}
	}

	return &UserSessionsReport{
		User:       *user,
		Summary:    newSessionsSummary(SummarizeScores(finished)),
		Sessions:   rows,
		Pagination: p.Result(total, len(rows)),
	}, nil
}

func newSessionsSummary(s ScoreSummary) SessionsSummary {
	out := SessionsSummary{
		TotalSessions:        s.FinishedSessions,
		TotalPlaytimeMinutes: models.RoundTo(float64(s.TotalDurationSeconds)/60, 1),
		FirstSession:         s.FirstPlayedAt,
		LastSession:          s.LastPlayedAt,
	}
	if s.AvgScore != nil {
		out.AvgScore = *s.AvgScore
	}
	if s.BestScore != nil {
		out.BestScore = *s.BestScore
	}
	return out
}

func (r *ReportingService) user(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
