package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"kknotes/internal/models"
	"kknotes/internal/qerrors"
	"kknotes/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/golang/glog"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/time/rate"
)

// Repository is the process-wide repository, set up once at startup.
var Repository *StoreRepository

// Config holds the collaborators of a StoreRepository.
type Config struct {
	Store store.Store
	// Activity defaults to an ActivityLog kept in Store.
	Activity ActivityLog
	// Clock defaults to time.Now.
	Clock func() time.Time
	// ChatMessagesPerMinute defaults to 20.
	ChatMessagesPerMinute int
}

// StoreRepository reads and writes the content tree, the admin registry, user profiles, the
// chat and the activity log in a Store.
type StoreRepository struct {
	store    store.Store
	activity ActivityLog
	clock    func() time.Time

	chatLimitersLock sync.Mutex
	chatLimiters     map[string]*rate.Limiter
	chatRate         rate.Limit
	chatBurst        int
}

var validate = newValidator()

func New(c Config) (*StoreRepository, error) {
	if c.Store == nil {
		return nil, fmt.Errorf("repository requires a store")
	}
	if c.Activity == nil {
		c.Activity = NewStoreActivityLog(c.Store)
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.ChatMessagesPerMinute <= 0 {
		c.ChatMessagesPerMinute = 20
	}

	return &StoreRepository{
		store:        c.Store,
		activity:     c.Activity,
		clock:        c.Clock,
		chatLimiters: make(map[string]*rate.Limiter),
		chatRate:     rate.Every(time.Minute / time.Duration(c.ChatMessagesPerMinute)),
		chatBurst:    min(c.ChatMessagesPerMinute, 5),
	}, nil
}

// Store returns the underlying store.
func (r *StoreRepository) Store() store.Store {
	return r.store
}

// Helpers

// decode copies a store value into out using the mapstructure tags of the models.
func decode(raw interface{}, out interface{}) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return d.Decode(raw)
}

// children returns the child values of an object or array node keyed by their key.
func children(raw interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	switch n := raw.(type) {
	case map[string]interface{}:
		for k, v := range n {
			if v != nil {
				out[k] = v
			}
		}
	case []interface{}:
		for i, v := range n {
			if v != nil {
				out[fmt.Sprint(i)] = v
			}
		}
	}
	return out
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateRequest runs the struct tag validations of a *Request struct.
func validateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", qerrors.ValidationError, err)
	}
	invalid := &qerrors.InvalidRequest{}
	for _, fe := range verrs {
		invalid.Fields = append(invalid.Fields, qerrors.FieldError{
			Field: fe.Field(),
			Error: describeFieldError(fe),
		})
	}
	return invalid
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	}
	return "is invalid"
}

func requireSession(s *models.Session) error {
	if s == nil || !s.Authenticated {
		return qerrors.NewForbidden("you must be signed in")
	}
	return nil
}

func requireAdmin(s *models.Session) error {
	if s == nil || !s.IsAdmin {
		return qerrors.NewForbidden("admin access required")
	}
	return nil
}

func requireSuperAdmin(s *models.Session) error {
	if s == nil || !s.IsSuperAdmin {
		return qerrors.NewForbidden("super admin access required")
	}
	return nil
}

func sessionUser(s *models.Session) (id, email string) {
	if s == nil || s.Identity == nil {
		return "", ""
	}
	return s.Identity.ID, s.Email()
}

// logActivity appends an activity entry. Failures are logged and never returned.
func (r *StoreRepository) logActivity(ctx context.Context, entry models.ActivityLogEntry, by *models.Session) {
	entry.UserID, entry.UserEmail = sessionUser(by)
	if err := r.activity.Record(ctx, entry); err != nil {
		glog.Warningf("error recording %s activity for %s/%s: %v\n", entry.Type, entry.Semester, entry.Subject, err)
	}
}

func validateSemester(semester string) error {
	if semester == "" {
		return qerrors.NewInvalidRequest("semester", "a semester must be selected")
	}
	if !models.IsValidSemester(semester) {
		return qerrors.InvalidSemesterError
	}
	return nil
}

func validateSubjectKey(key string) error {
	if key == "" {
		return qerrors.NewInvalidRequest("subject", "a subject must be selected")
	}
	if !store.ValidKey(key) {
		return qerrors.NewInvalidRequest("subject", "must not contain '.', '#', '$', '[', ']' or '/'")
	}
	return nil
}
