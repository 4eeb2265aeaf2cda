package analytics

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"kknotes/internal/models"
	"kknotes/internal/repository"
	"kknotes/internal/store"
)

func createEntries() []*models.ActivityLogEntry {
	entry := func(t models.ActivityType, email string) *models.ActivityLogEntry {
		return &models.ActivityLogEntry{Type: t, UserEmail: email}
	}
	return []*models.ActivityLogEntry{
		entry("note_added", "a@x.com"),
		entry("note_added", "a@x.com"),
		entry("video_added", "b@x.com"),
		entry("note_deleted", "a@x.com"),
		entry(models.ActivitySubjectAdded, "c@x.com"),
		entry("video_added", "b@x.com"),
		// Written without a session.
		entry("note_edited", ""),
	}
}

func TestGenerateStatsFromActivity(t *testing.T) {
	stats := GenerateStatsFromActivity(createEntries())

	expectedByType := map[models.ActivityType]int{
		"note_added":                2,
		"video_added":               2,
		"note_deleted":              1,
		"note_edited":               1,
		models.ActivitySubjectAdded: 1,
	}
	if !reflect.DeepEqual(stats.ActivityByType, expectedByType) {
		t.Errorf("Expected activity by type to be %v, got %v", expectedByType, stats.ActivityByType)
	}

	expectedContributors := []string{"a@x.com", "b@x.com", "c@x.com"}
	if !reflect.DeepEqual(stats.ActiveContributors, expectedContributors) {
		t.Errorf("Expected contributors to be %v, got %v", expectedContributors, stats.ActiveContributors)
	}

	if stats.ContributionsPerUser.P50 != 2 {
		t.Errorf("Expected a median of 2 contributions, got %f", stats.ContributionsPerUser.P50)
	}
}

func TestGenerateStatsFromNoActivity(t *testing.T) {
	stats := GenerateStatsFromActivity(nil)
	if len(stats.ActivityByType) != 0 || stats.ActiveContributors == nil {
		t.Errorf("Expected empty, non-nil summaries, got %+v", stats)
	}
}

func TestGenerateDashboardStats(t *testing.T) {
	ctx := context.Background()
	r, err := repository.New(repository.Config{Store: store.NewMemory(nil)})
	if err != nil {
		t.Fatalf("Expected no error creating repository, got %v", err)
	}
	super := &models.Session{
		Identity:      &models.Identity{ID: "root", Email: models.SuperAdminEmail},
		Authenticated: true, IsAdmin: true, IsSuperAdmin: true,
	}

	r.AddSubject(ctx, &models.AddSubjectRequest{Semester: "s1", Key: "maths", Name: "Maths", AddedBy: super})
	r.AddSubject(ctx, &models.AddSubjectRequest{Semester: "s1", Key: "physics", Name: "Physics", AddedBy: super})
	r.AddSubject(ctx, &models.AddSubjectRequest{Semester: "s3", Key: "ds", Name: "DS", AddedBy: super})
	for _, item := range []struct {
		t        models.ContentType
		sem, sub string
	}{
		{models.ContentNotes, "s1", "maths"},
		{models.ContentNotes, "s1", "physics"},
		{models.ContentVideos, "s1", "maths"},
		{models.ContentNotes, "s3", "ds"},
	} {
		_, err := r.AddContentItem(ctx, &models.AddContentItemRequest{
			Type: item.t, Semester: item.sem, Subject: item.sub, Title: "T", Link: "https://youtu.be/abc", AddedBy: super,
		})
		if err != nil {
			t.Fatalf("Expected no error adding content, got %v", err)
		}
	}
	r.AddAdmin(ctx, &models.AddAdminRequest{Email: "a@x.com", AddedBy: super})
	r.UpsertProfile(ctx, super.Identity)

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	stats, err := GenerateDashboardStats(ctx, r, 0, now)
	if err != nil {
		t.Fatalf("Expected no error generating stats, got %v", err)
	}

	if stats.TotalNotes != 3 || stats.TotalVideos != 1 || stats.TotalSubjects != 3 {
		t.Errorf("Expected 3 notes, 1 video and 3 subjects, got %+v", stats)
	}
	if stats.TotalAdmins != 1 || stats.TotalUsers != 1 {
		t.Errorf("Expected 1 admin and 1 user, got %d and %d", stats.TotalAdmins, stats.TotalUsers)
	}
	if len(stats.Semesters) != 8 {
		t.Fatalf("Expected 8 semesters, got %d", len(stats.Semesters))
	}
	expectedS1 := models.SemesterStats{Semester: "s1", Subjects: 2, Notes: 2, Videos: 1}
	if stats.Semesters[0] != expectedS1 {
		t.Errorf("Expected s1 stats to be %+v, got %+v", expectedS1, stats.Semesters[0])
	}
	if stats.ActivityByType["note_added"] != 3 || stats.ActivityByType[models.ActivitySubjectAdded] != 3 {
		t.Errorf("Expected the activity to be counted, got %v", stats.ActivityByType)
	}
	if !stats.GeneratedAt.Equal(now) {
		t.Errorf("Expected GeneratedAt to be %v, got %v", now, stats.GeneratedAt)
	}
}

type failingSource struct{ Source }

func (failingSource) ListAdmins(context.Context) ([]*models.AdminRecord, error) {
	return nil, errors.New("registry down")
}

func TestGenerateDashboardStatsFails(t *testing.T) {
	r, _ := repository.New(repository.Config{Store: store.NewMemory(nil)})
	if _, err := GenerateDashboardStats(context.Background(), failingSource{r}, 10, time.Now()); err == nil {
		t.Errorf("Expected a failed read to fail the summary")
	}
}

func approximatelyEqual(a float64, b float64) bool {
	return math.Abs(a-b) < 0.00001
}

func TestCalculatePercentiles(t *testing.T) {
	basicDistribution := []int{2, 5, 10}
	basicPercentiles := CalculatePercentiles(basicDistribution)
	expectedBasicPercentiles := &models.Percentiles{
		P50: 5,
		P90: 9,
		P99: 9.9,
	}

	if !approximatelyEqual(basicPercentiles.P50, expectedBasicPercentiles.P50) {
		t.Errorf("Expected P50 to be %f, got %f", expectedBasicPercentiles.P50, basicPercentiles.P50)
	}
	if !approximatelyEqual(basicPercentiles.P90, expectedBasicPercentiles.P90) {
		t.Errorf("Expected P90 to be %f, got %f", expectedBasicPercentiles.P90, basicPercentiles.P90)
	}
	if !approximatelyEqual(basicPercentiles.P99, expectedBasicPercentiles.P99) {
		t.Errorf("Expected P99 to be %f, got %f", expectedBasicPercentiles.P99, basicPercentiles.P99)
	}

	if empty := CalculatePercentiles(nil); empty != (models.Percentiles{}) {
		t.Errorf("Expected zero percentiles for no data, got %+v", empty)
	}
}
