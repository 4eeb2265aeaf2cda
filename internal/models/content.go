package models

// ContentType selects one of the two content trees.
type ContentType string

const (
	ContentNotes  ContentType = "notes"
	ContentVideos ContentType = "videos"
)

// ParseContentType accepts both the tree name ("notes", "videos") and the singular form
// ("note", "video").
func ParseContentType(s string) (ContentType, bool) {
	switch s {
	case "notes", "note":
		return ContentNotes, true
	case "videos", "video":
		return ContentVideos, true
	}
	return "", false
}

// Singular returns "note" or "video", used as the activity type prefix.
func (t ContentType) Singular() string {
	switch t {
	case ContentNotes:
		return "note"
	case ContentVideos:
		return "video"
	}
	return string(t)
}

// ContentItem is a note or a video stored at {type}/{semester}/{subject}/{id}.
type ContentItem struct {
	ID          string `json:"id" mapstructure:"-"`
	Title       string `json:"title" mapstructure:"title"`
	Description string `json:"description" mapstructure:"description"`
	Link        string `json:"link" mapstructure:"link"`
	AddedBy     string `json:"addedBy" mapstructure:"addedBy"`
	AddedAt     int64  `json:"addedAt" mapstructure:"addedAt"`
	UpdatedAt   int64  `json:"updatedAt,omitempty" mapstructure:"updatedAt"`

	// Video only
	VideoID   string `json:"videoId,omitempty" mapstructure:"videoId"`
	Thumbnail string `json:"thumbnail,omitempty" mapstructure:"thumbnail"`
}

// AddContentItemRequest is the parameter struct to the AddContentItem function.
type AddContentItemRequest struct {
	Type        ContentType `json:"-"`
	Semester    string      `json:"semester"`
	Subject     string      `json:"subject"`
	Title       string      `json:"title" validate:"required,max=200"`
	Description string      `json:"description" validate:"max=2000"`
	Link        string      `json:"link" validate:"required,max=2048"`
	// Will be set from context
	AddedBy *Session `json:"-"`
}

// UpdateContentItemRequest is the parameter struct to the UpdateContentItem function. Nil
// fields are left untouched.
type UpdateContentItemRequest struct {
	Type        ContentType `json:"-"`
	Semester    string      `json:"-"`
	Subject     string      `json:"-"`
	ItemID      string      `json:"-"`
	Title       *string     `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description *string     `json:"description,omitempty" validate:"omitempty,max=2000"`
	Link        *string     `json:"link,omitempty" validate:"omitempty,min=1,max=2048"`
	EditedBy    *Session    `json:"-"`
}

// DeleteContentItemRequest is the parameter struct to the DeleteContentItem function.
type DeleteContentItemRequest struct {
	Type      ContentType
	Semester  string
	Subject   string
	ItemID    string
	DeletedBy *Session
}
