package analytics

import (
	"context"
	"sort"
	"time"

	"kknotes/internal/models"

	"golang.org/x/sync/errgroup"
)

// DefaultActivityWindow is the number of recent activity entries the dashboard summarizes.
const DefaultActivityWindow = 200

// Source is the read side of the repository the dashboard is built from.
type Source interface {
	ListSubjects(ctx context.Context, semester string) ([]models.Subject, error)
	CountContentItems(ctx context.Context, t models.ContentType, semester, subject string) (int, error)
	ListAdmins(ctx context.Context) ([]*models.AdminRecord, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	RecentActivity(ctx context.Context, n int) ([]*models.ActivityLogEntry, error)
}

// GenerateDashboardStats reads every semester, the admin registry, the user directory and the
// last activityWindow activity entries, and summarizes them. Any failed read fails the whole
// summary.
func GenerateDashboardStats(ctx context.Context, src Source, activityWindow int, now time.Time) (*models.DashboardStats, error) {
	if activityWindow <= 0 {
		activityWindow = DefaultActivityWindow
	}

	semesters := models.Semesters()
	perSemester := make([]models.SemesterStats, len(semesters))
	var admins []*models.AdminRecord
	var users []*models.User
	var activity []*models.ActivityLogEntry

	g, ctx := errgroup.WithContext(ctx)
	for i, s := range semesters {
		i, s := i, s
		g.Go(func() error {
			stats, err := semesterStats(ctx, src, s.ID)
			perSemester[i] = stats
			return err
		})
	}
	g.Go(func() (err error) {
		admins, err = src.ListAdmins(ctx)
		return err
	})
	g.Go(func() (err error) {
		users, err = src.ListUsers(ctx)
		return err
	})
	g.Go(func() (err error) {
		activity, err = src.RecentActivity(ctx, activityWindow)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := GenerateStatsFromActivity(activity)
	stats.GeneratedAt = now
	stats.Semesters = perSemester
	stats.TotalAdmins = len(admins)
	stats.TotalUsers = len(users)
	for _, s := range perSemester {
		stats.TotalSubjects += s.Subjects
		stats.TotalNotes += s.Notes
		stats.TotalVideos += s.Videos
	}
	return stats, nil
}

func semesterStats(ctx context.Context, src Source, semester string) (models.SemesterStats, error) {
	stats := models.SemesterStats{Semester: semester}

	subjects, err := src.ListSubjects(ctx, semester)
	if err != nil {
		return stats, err
	}
	stats.Subjects = len(subjects)

	if stats.Notes, err = src.CountContentItems(ctx, models.ContentNotes, semester, ""); err != nil {
		return stats, err
	}
	if stats.Videos, err = src.CountContentItems(ctx, models.ContentVideos, semester, ""); err != nil {
		return stats, err
	}
	return stats, nil
}

// GenerateStatsFromActivity summarizes activity entries. Does not need/use any store.
func GenerateStatsFromActivity(entries []*models.ActivityLogEntry) *models.DashboardStats {
	stats := &models.DashboardStats{
		ActivityByType:     make(map[models.ActivityType]int),
		ActiveContributors: make([]string, 0),
	}

	perUser := make(map[string]int)
	for _, e := range entries {
		stats.ActivityByType[e.Type]++
		if e.UserEmail != "" {
			perUser[e.UserEmail]++
		}
	}

	counts := make([]int, 0, len(perUser))
	for email, n := range perUser {
		stats.ActiveContributors = append(stats.ActiveContributors, email)
		counts = append(counts, n)
	}
	sort.Slice(stats.ActiveContributors, func(i, j int) bool {
		a, b := stats.ActiveContributors[i], stats.ActiveContributors[j]
		if perUser[a] != perUser[b] {
			return perUser[a] > perUser[b]
		}
		return a < b
	})
	stats.ContributionsPerUser = CalculatePercentiles(counts)
	return stats
}

func CalculatePercentiles(data []int) models.Percentiles {
	if len(data) == 0 {
		return models.Percentiles{}
	}

	sort.Ints(data)

	calculatePercentile := func(percentile float64) float64 {
		rank := percentile / 100 * float64(len(data)-1)
		rankInt := int(rank)

		// If the rank is an integer, return the value at that index
		if rank == float64(rankInt) {
			return float64(data[rankInt])
		}

		// Otherwise, linearly interpolate
		baseline := data[rankInt]
		interpolation := (rank - float64(rankInt)) * float64(data[rankInt+1]-data[rankInt])

		return float64(baseline) + interpolation
	}

	return models.Percentiles{
		P50: calculatePercentile(50),
		P90: calculatePercentile(90),
		P99: calculatePercentile(99),
	}
}
