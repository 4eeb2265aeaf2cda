package repository

import (
	"context"
	"sort"
	"strconv"

	"kknotes/internal/models"
	"kknotes/internal/qerrors"
	"kknotes/internal/store"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// ListSemesters returns the fixed semesters s1..s8.
func (r *StoreRepository) ListSemesters() []models.Semester {
	return models.Semesters()
}

// ListSubjects returns the subjects of a semester in stored order. A semester without subjects
// yields an empty slice.
func (r *StoreRepository) ListSubjects(ctx context.Context, semester string) ([]models.Subject, error) {
	if err := validateSemester(semester); err != nil {
		return nil, err
	}

	raw, err := r.store.Read(ctx, subjectsPath(semester))
	if err != nil {
		return nil, qerrors.Backend("listing subjects", err)
	}
	return decodeSubjects(raw), nil
}

// AddSubject appends a subject to a semester. The key must not already be in use in that
// semester. The check and the write happen in one store transaction.
func (r *StoreRepository) AddSubject(ctx context.Context, req *models.AddSubjectRequest) (*models.Subject, error) {
	if err := validateSemester(req.Semester); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if err := validateSubjectKey(req.Key); err != nil {
		return nil, err
	}

	subject := models.Subject{Key: req.Key, Name: req.Name, Code: req.Code}
	err := r.store.Transact(ctx, subjectsPath(req.Semester), func(current interface{}) (interface{}, error) {
		subjects := decodeSubjects(current)
		for _, s := range subjects {
			if s.Key == subject.Key {
				return nil, qerrors.DuplicateKey
			}
		}
		return encodeSubjects(append(subjects, subject)), nil
	})
	if err != nil {
		return nil, qerrors.Backend("adding subject", err)
	}

	r.logActivity(ctx, models.ActivityLogEntry{
		Type:     models.ActivitySubjectAdded,
		Semester: req.Semester,
		Subject:  subject.Key,
		Title:    subject.Name,
	}, req.AddedBy)
	return &subject, nil
}

// UpdateSubject renames a subject. Its key never changes.
func (r *StoreRepository) UpdateSubject(ctx context.Context, req *models.UpdateSubjectRequest) (*models.Subject, error) {
	if err := validateSemester(req.Semester); err != nil {
		return nil, err
	}
	if err := validateSubjectKey(req.Key); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var updated models.Subject
	err := r.store.Transact(ctx, subjectsPath(req.Semester), func(current interface{}) (interface{}, error) {
		subjects := decodeSubjects(current)
		found := false
		for i := range subjects {
			if subjects[i].Key != req.Key {
				continue
			}
			subjects[i].Name = req.Name
			if req.Code != nil {
				subjects[i].Code = *req.Code
			}
			updated = subjects[i]
			found = true
		}
		if !found {
			return nil, qerrors.SubjectNotFoundError
		}
		return encodeSubjects(subjects), nil
	})
	if err != nil {
		return nil, qerrors.Backend("updating subject", err)
	}

	r.logActivity(ctx, models.ActivityLogEntry{
		Type:     models.ActivitySubjectEdited,
		Semester: req.Semester,
		Subject:  updated.Key,
		Title:    updated.Name,
	}, req.EditedBy)
	return &updated, nil
}

// DeleteSubject removes a subject from its semester, then deletes every note and video filed
// under it.
func (r *StoreRepository) DeleteSubject(ctx context.Context, req *models.DeleteSubjectRequest) error {
	if err := validateSemester(req.Semester); err != nil {
		return err
	}
	if err := validateSubjectKey(req.Key); err != nil {
		return err
	}

	var removed models.Subject
	err := r.store.Transact(ctx, subjectsPath(req.Semester), func(current interface{}) (interface{}, error) {
		subjects := decodeSubjects(current)
		kept := subjects[:0]
		found := false
		for _, s := range subjects {
			if s.Key == req.Key {
				removed = s
				found = true
				continue
			}
			kept = append(kept, s)
		}
		if !found {
			return nil, qerrors.SubjectNotFoundError
		}
		return encodeSubjects(kept), nil
	})
	if err != nil {
		return qerrors.Backend("deleting subject", err)
	}

	// Cascade to both content trees.
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range []models.ContentType{models.ContentNotes, models.ContentVideos} {
		path := store.Join(string(t), req.Semester, req.Key)
		g.Go(func() error {
			return r.store.Remove(gctx, path)
		})
	}
	if err := g.Wait(); err != nil {
		glog.Errorf("subject %s/%s was removed but its content was not: %v\n", req.Semester, req.Key, err)
		return qerrors.Backend("deleting subject content", err)
	}

	r.logActivity(ctx, models.ActivityLogEntry{
		Type:     models.ActivitySubjectDeleted,
		Semester: req.Semester,
		Subject:  removed.Key,
		Title:    removed.Name,
	}, req.DeletedBy)
	return nil
}

// Helpers

func subjectsPath(semester string) string {
	return store.Join(models.StoreSubjectsPath, semester)
}

// decodeSubjects reads the subjects array. The Realtime Database returns sparse arrays as
// objects keyed by index, so both shapes are accepted. Malformed entries are skipped.
func decodeSubjects(raw interface{}) []models.Subject {
	type indexed struct {
		index   int
		subject models.Subject
	}
	var entries []indexed
	for k, v := range children(raw) {
		i, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		var s models.Subject
		if err := decode(v, &s); err != nil || s.Key == "" {
			glog.V(1).Infof("skipping malformed subject at index %s: %v", k, v)
			continue
		}
		entries = append(entries, indexed{i, s})
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].index < entries[b].index })

	subjects := make([]models.Subject, 0, len(entries))
	for _, e := range entries {
		subjects = append(subjects, e.subject)
	}
	return subjects
}

func encodeSubjects(subjects []models.Subject) []interface{} {
	out := make([]interface{}, 0, len(subjects))
	for _, s := range subjects {
		m := map[string]interface{}{
			"key":  s.Key,
			"name": s.Name,
		}
		if s.Code != "" {
			m["code"] = s.Code
		}
		out = append(out, m)
	}
	return out
}
