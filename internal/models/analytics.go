package models

import "time"

const (
	StoreActivityPath           = "activity"
	FirestoreActivityCollection = "activity"
)

type ActivityType string

// ActivityTypeFor builds the activity type for a content mutation, e.g. "note_added".
func ActivityTypeFor(t ContentType, verb string) ActivityType {
	return ActivityType(t.Singular() + "_" + verb)
}

const (
	ActivitySubjectAdded   ActivityType = "subject_added"
	ActivitySubjectEdited  ActivityType = "subject_edited"
	ActivitySubjectDeleted ActivityType = "subject_deleted"
)

// ActivityLogEntry is an append-only record of a content mutation.
type ActivityLogEntry struct {
	ID        string       `json:"id" mapstructure:"-" firestore:"-"`
	Type      ActivityType `json:"type" mapstructure:"type" firestore:"type"`
	Semester  string       `json:"semester" mapstructure:"semester" firestore:"semester"`
	Subject   string       `json:"subject" mapstructure:"subject" firestore:"subject"`
	ContentID string       `json:"contentId,omitempty" mapstructure:"contentId" firestore:"contentId"`
	Title     string       `json:"title" mapstructure:"title" firestore:"title"`
	Timestamp int64        `json:"timestamp" mapstructure:"timestamp" firestore:"-"`
	UserID    string       `json:"userId" mapstructure:"userId" firestore:"userId"`
	UserEmail string       `json:"userEmail" mapstructure:"userEmail" firestore:"userEmail"`
}

// SemesterStats holds the content counts for one semester.
type SemesterStats struct {
	Semester string `json:"semester"`
	Subjects int    `json:"subjects"`
	Notes    int    `json:"notes"`
	Videos   int    `json:"videos"`
}

// DashboardStats is the summary shown on the admin dashboard.
type DashboardStats struct {
	GeneratedAt time.Time `json:"generatedAt"`

	TotalNotes    int `json:"totalNotes"`
	TotalVideos   int `json:"totalVideos"`
	TotalSubjects int `json:"totalSubjects"`
	TotalAdmins   int `json:"totalAdmins"`
	TotalUsers    int `json:"totalUsers"`

	Semesters []SemesterStats `json:"semesters"`

	// ActivityByType counts the recent activity entries per type.
	ActivityByType map[ActivityType]int `json:"activityByType"`
	// ActiveContributors lists the emails behind the recent activity, most active first.
	ActiveContributors []string `json:"activeContributors"`
	// ContributionsPerUser is the spread of recent activity entries per contributor.
	ContributionsPerUser Percentiles `json:"contributionsPerUser"`
}

type Percentiles struct {
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P99 float64 `json:"p99"`
}
