package repository

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"kknotes/internal/models"
	"kknotes/internal/qerrors"
)

func TestListSemesters(t *testing.T) {
	r, _ := newTestRepository(t)

	semesters := r.ListSemesters()
	if len(semesters) != 8 {
		t.Fatalf("Expected 8 semesters, got %d", len(semesters))
	}
	if semesters[0].ID != "s1" || semesters[7].ID != "s8" {
		t.Errorf("Expected semesters s1..s8, got %v", semesters)
	}
}

func TestAddSubject(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	admin := adminSession("a@x.com")

	_, err := r.AddSubject(ctx, &models.AddSubjectRequest{Semester: "s3", Key: "ds", Name: "Data Structures", Code: "CS201", AddedBy: admin})
	if err != nil {
		t.Fatalf("Expected no error adding subject, got %v", err)
	}

	_, err = r.AddSubject(ctx, &models.AddSubjectRequest{Semester: "s3", Key: "ds", Name: "Duplicate", AddedBy: admin})
	if !errors.Is(err, qerrors.DuplicateKey) {
		t.Errorf("Expected DuplicateKey adding the same key twice, got %v", err)
	}

	subjects, err := r.ListSubjects(ctx, "s3")
	if err != nil {
		t.Fatalf("Expected no error listing subjects, got %v", err)
	}
	expected := []models.Subject{{Key: "ds", Name: "Data Structures", Code: "CS201"}}
	if !reflect.DeepEqual(subjects, expected) {
		t.Errorf("Expected subjects to be %v, got %v", expected, subjects)
	}

	types := recentActivityTypes(t, r)
	if !reflect.DeepEqual(types, []models.ActivityType{models.ActivitySubjectAdded}) {
		t.Errorf("Expected a single subject_added entry, got %v", types)
	}
}

func TestAddSubjectValidation(t *testing.T) {
	ctx := context.Background()
	r, mem := newTestRepository(t)

	cases := []*models.AddSubjectRequest{
		{Semester: "", Key: "ds", Name: "DS"},
		{Semester: "s9", Key: "ds", Name: "DS"},
		{Semester: "s1", Key: "", Name: "DS"},
		{Semester: "s1", Key: "d/s", Name: "DS"},
		{Semester: "s1", Key: "ds", Name: ""},
	}
	for _, req := range cases {
		if _, err := r.AddSubject(ctx, req); !errors.Is(err, qerrors.ValidationError) {
			t.Errorf("Expected ValidationError for %+v, got %v", req, err)
		}
	}

	raw, _ := mem.Read(ctx, "subjects")
	if raw != nil {
		t.Errorf("Expected nothing to be written, got %v", raw)
	}
}

func TestConcurrentAddSubjectKeepsEveryKey(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	admin := adminSession("a@x.com")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("sub%d", i)
			if _, err := r.AddSubject(ctx, &models.AddSubjectRequest{Semester: "s1", Key: key, Name: key, AddedBy: admin}); err != nil {
				t.Errorf("Expected no error adding %s, got %v", key, err)
			}
		}(i)
	}
	wg.Wait()

	subjects, _ := r.ListSubjects(ctx, "s1")
	if len(subjects) != 10 {
		t.Errorf("Expected 10 subjects, got %d", len(subjects))
	}
}

func TestUpdateSubject(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	admin := adminSession("a@x.com")

	_, err := r.UpdateSubject(ctx, &models.UpdateSubjectRequest{Semester: "s1", Key: "nope", Name: "Nope", EditedBy: admin})
	if !errors.Is(err, qerrors.NotFound) {
		t.Errorf("Expected NotFound updating a missing subject, got %v", err)
	}

	r.AddSubject(ctx, &models.AddSubjectRequest{Semester: "s1", Key: "maths", Name: "Maths", AddedBy: admin})
	r.AddSubject(ctx, &models.AddSubjectRequest{Semester: "s1", Key: "physics", Name: "Physics", AddedBy: admin})

	code := "MA101"
	updated, err := r.UpdateSubject(ctx, &models.UpdateSubjectRequest{Semester: "s1", Key: "maths", Name: "Mathematics I", Code: &code, EditedBy: admin})
	if err != nil {
		t.Fatalf("Expected no error updating subject, got %v", err)
	}
	if updated.Key != "maths" || updated.Name != "Mathematics I" || updated.Code != "MA101" {
		t.Errorf("Expected the renamed subject, got %+v", updated)
	}

	subjects, _ := r.ListSubjects(ctx, "s1")
	expected := []models.Subject{{Key: "maths", Name: "Mathematics I", Code: "MA101"}, {Key: "physics", Name: "Physics"}}
	if !reflect.DeepEqual(subjects, expected) {
		t.Errorf("Expected subjects to be %v, got %v", expected, subjects)
	}
}

func TestDeleteSubjectCascades(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	admin := adminSession("a@x.com")

	r.AddSubject(ctx, &models.AddSubjectRequest{Semester: "s2", Key: "chem", Name: "Chemistry", AddedBy: admin})
	r.AddSubject(ctx, &models.AddSubjectRequest{Semester: "s2", Key: "bio", Name: "Biology", AddedBy: admin})
	for _, tt := range []models.ContentType{models.ContentNotes, models.ContentVideos} {
		for i := 0; i < 2; i++ {
			_, err := r.AddContentItem(ctx, &models.AddContentItemRequest{
				Type: tt, Semester: "s2", Subject: "chem",
				Title: "Item", Link: "https://youtu.be/abc123", AddedBy: admin,
			})
			if err != nil {
				t.Fatalf("Expected no error adding content, got %v", err)
			}
		}
	}
	r.AddContentItem(ctx, &models.AddContentItemRequest{
		Type: models.ContentNotes, Semester: "s2", Subject: "bio",
		Title: "Cells", Link: "https://drive.google.com/file/d/1", AddedBy: admin,
	})

	if err := r.DeleteSubject(ctx, &models.DeleteSubjectRequest{Semester: "s2", Key: "chem", DeletedBy: admin}); err != nil {
		t.Fatalf("Expected no error deleting subject, got %v", err)
	}

	for _, tt := range []models.ContentType{models.ContentNotes, models.ContentVideos} {
		n, err := r.CountContentItems(ctx, tt, "s2", "chem")
		if err != nil || n != 0 {
			t.Errorf("Expected 0 %s after deleting the subject, got %d (%v)", tt, n, err)
		}
	}
	if n, _ := r.CountContentItems(ctx, models.ContentNotes, "s2", "bio"); n != 1 {
		t.Errorf("Expected the other subject's notes to survive, got %d", n)
	}

	subjects, _ := r.ListSubjects(ctx, "s2")
	if !reflect.DeepEqual(subjects, []models.Subject{{Key: "bio", Name: "Biology"}}) {
		t.Errorf("Expected only bio to remain, got %v", subjects)
	}

	err := r.DeleteSubject(ctx, &models.DeleteSubjectRequest{Semester: "s2", Key: "chem", DeletedBy: admin})
	if !errors.Is(err, qerrors.NotFound) {
		t.Errorf("Expected NotFound deleting the subject again, got %v", err)
	}
}

func TestDecodeSubjectsAcceptsSparseArrays(t *testing.T) {
	raw := map[string]interface{}{
		"2": map[string]interface{}{"key": "c", "name": "C"},
		"0": map[string]interface{}{"key": "a", "name": "A"},
		"1": "garbage",
		"x": map[string]interface{}{"key": "x", "name": "X"},
	}
	subjects := decodeSubjects(raw)
	expected := []models.Subject{{Key: "a", Name: "A"}, {Key: "c", Name: "C"}}
	if !reflect.DeepEqual(subjects, expected) {
		t.Errorf("Expected subjects to be %v, got %v", expected, subjects)
	}
}
