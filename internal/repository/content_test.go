package repository

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"kknotes/internal/models"
	"kknotes/internal/qerrors"
)

func TestAddContentItemValidation(t *testing.T) {
	ctx := context.Background()
	r, mem := newTestRepository(t)
	admin := adminSession("a@x.com")

	tests := []struct {
		name string
		req  *models.AddContentItemRequest
	}{
		{"no semester", &models.AddContentItemRequest{Type: models.ContentNotes, Subject: "ds", Title: "T", Link: "L", AddedBy: admin}},
		{"no subject", &models.AddContentItemRequest{Type: models.ContentNotes, Semester: "s1", Title: "T", Link: "L", AddedBy: admin}},
		{"bad semester", &models.AddContentItemRequest{Type: models.ContentNotes, Semester: "s0", Subject: "ds", Title: "T", Link: "L", AddedBy: admin}},
		{"bad type", &models.AddContentItemRequest{Type: "slides", Semester: "s1", Subject: "ds", Title: "T", Link: "L", AddedBy: admin}},
		{"no title", &models.AddContentItemRequest{Type: models.ContentNotes, Semester: "s1", Subject: "ds", Link: "L", AddedBy: admin}},
		{"no link", &models.AddContentItemRequest{Type: models.ContentVideos, Semester: "s1", Subject: "ds", Title: "T", AddedBy: admin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.AddContentItem(ctx, tt.req); !errors.Is(err, qerrors.ValidationError) {
				t.Errorf("Expected ValidationError, got %v", err)
			}
		})
	}

	for _, path := range []string{"notes", "videos", "activity"} {
		if raw, _ := mem.Read(ctx, path); raw != nil {
			t.Errorf("Expected nothing written under %s, got %v", path, raw)
		}
	}
}

func TestAddNote(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)

	note, err := r.AddContentItem(ctx, &models.AddContentItemRequest{
		Type: models.ContentNotes, Semester: "s1", Subject: "maths",
		Title: "Calculus", Description: "Module 1", Link: "https://drive.google.com/file/d/1",
		AddedBy: adminSession("Lecturer@X.com"),
	})
	if err != nil {
		t.Fatalf("Expected no error adding note, got %v", err)
	}
	if note.ID == "" {
		t.Errorf("Expected the note to get a generated id")
	}
	if note.AddedBy != "lecturer@x.com" {
		t.Errorf("Expected addedBy to be the normalized email, got %q", note.AddedBy)
	}

	stored, err := r.GetContentItem(ctx, models.ContentNotes, "s1", "maths", note.ID)
	if err != nil {
		t.Fatalf("Expected no error reading the note back, got %v", err)
	}
	if stored.Title != "Calculus" || stored.AddedAt == 0 || stored.VideoID != "" {
		t.Errorf("Expected the stored note to match, got %+v", stored)
	}

	types := recentActivityTypes(t, r)
	if !reflect.DeepEqual(types, []models.ActivityType{"note_added"}) {
		t.Errorf("Expected a note_added entry, got %v", types)
	}
}

func TestAddVideoRepairsLink(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)

	video, err := r.AddContentItem(ctx, &models.AddContentItemRequest{
		Type: models.ContentVideos, Semester: "s1", Subject: "maths",
		Title: "Limits", Link: "/youtube.com/watch?v=abc123", AddedBy: adminSession("a@x.com"),
	})
	if err != nil {
		t.Fatalf("Expected no error adding video, got %v", err)
	}

	stored, _ := r.GetContentItem(ctx, models.ContentVideos, "s1", "maths", video.ID)
	if stored.Link != "https://youtube.com/watch?v=abc123" {
		t.Errorf("Expected the link to be repaired, got %q", stored.Link)
	}
	if stored.VideoID != "abc123" {
		t.Errorf("Expected videoId abc123, got %q", stored.VideoID)
	}
	if stored.Thumbnail != "https://img.youtube.com/vi/abc123/mqdefault.jpg" {
		t.Errorf("Expected a thumbnail, got %q", stored.Thumbnail)
	}

	playlist, _ := r.AddContentItem(ctx, &models.AddContentItemRequest{
		Type: models.ContentVideos, Semester: "s1", Subject: "maths",
		Title: "Course", Link: "https://www.youtube.com/playlist?list=PL123", AddedBy: adminSession("a@x.com"),
	})
	stored, _ = r.GetContentItem(ctx, models.ContentVideos, "s1", "maths", playlist.ID)
	if stored.VideoID != "PL123" || stored.Thumbnail != "" {
		t.Errorf("Expected a playlist id and no thumbnail, got %+v", stored)
	}
}

func TestListContentItemsNewestFirst(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	admin := adminSession("a@x.com")

	empty, err := r.ListContentItems(ctx, models.ContentNotes, "s1", "maths")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("Expected an empty, non-nil list, got %v (%v)", empty, err)
	}

	for _, title := range []string{"first", "second", "third"} {
		r.AddContentItem(ctx, &models.AddContentItemRequest{
			Type: models.ContentNotes, Semester: "s1", Subject: "maths", Title: title, Link: "https://x.com/" + title, AddedBy: admin,
		})
	}

	items, err := r.ListContentItems(ctx, models.ContentNotes, "s1", "maths")
	if err != nil {
		t.Fatalf("Expected no error listing notes, got %v", err)
	}
	var titles []string
	for _, item := range items {
		titles = append(titles, item.Title)
	}
	if !reflect.DeepEqual(titles, []string{"third", "second", "first"}) {
		t.Errorf("Expected newest first, got %v", titles)
	}
}

func TestUpdateContentItem(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	admin := adminSession("a@x.com")

	title := "Renamed"
	_, err := r.UpdateContentItem(ctx, &models.UpdateContentItemRequest{
		Type: models.ContentNotes, Semester: "s1", Subject: "maths", ItemID: "missing", Title: &title, EditedBy: admin,
	})
	if !errors.Is(err, qerrors.NotFound) {
		t.Errorf("Expected NotFound updating a missing item, got %v", err)
	}

	video, _ := r.AddContentItem(ctx, &models.AddContentItemRequest{
		Type: models.ContentVideos, Semester: "s1", Subject: "maths", Title: "Old", Description: "keep me",
		Link: "https://youtu.be/abc123", AddedBy: admin,
	})

	_, err = r.UpdateContentItem(ctx, &models.UpdateContentItemRequest{
		Type: models.ContentVideos, Semester: "s1", Subject: "maths", ItemID: video.ID, EditedBy: admin,
	})
	if !errors.Is(err, qerrors.ValidationError) {
		t.Errorf("Expected ValidationError for an empty patch, got %v", err)
	}

	link := "https://drive.google.com/file/d/1"
	updated, err := r.UpdateContentItem(ctx, &models.UpdateContentItemRequest{
		Type: models.ContentVideos, Semester: "s1", Subject: "maths", ItemID: video.ID, Title: &title, Link: &link, EditedBy: admin,
	})
	if err != nil {
		t.Fatalf("Expected no error updating, got %v", err)
	}
	if updated.Title != "Renamed" || updated.Description != "keep me" {
		t.Errorf("Expected a partial patch, got %+v", updated)
	}

	stored, _ := r.GetContentItem(ctx, models.ContentVideos, "s1", "maths", video.ID)
	if stored.Title != "Renamed" || stored.Description != "keep me" || stored.UpdatedAt == 0 {
		t.Errorf("Expected the stored item to be patched, got %+v", stored)
	}
	if stored.VideoID != "" || stored.Thumbnail != "" {
		t.Errorf("Expected stale video fields to be cleared, got %+v", stored)
	}
}

func TestDeleteContentItem(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepository(t)
	admin := adminSession("a@x.com")

	note, _ := r.AddContentItem(ctx, &models.AddContentItemRequest{
		Type: models.ContentNotes, Semester: "s4", Subject: "os", Title: "Paging", Link: "https://x.com/p", AddedBy: admin,
	})
	req := &models.DeleteContentItemRequest{Type: models.ContentNotes, Semester: "s4", Subject: "os", ItemID: note.ID, DeletedBy: admin}
	if err := r.DeleteContentItem(ctx, req); err != nil {
		t.Fatalf("Expected no error deleting, got %v", err)
	}
	if _, err := r.GetContentItem(ctx, models.ContentNotes, "s4", "os", note.ID); !errors.Is(err, qerrors.NotFound) {
		t.Errorf("Expected the note to be gone, got %v", err)
	}

	// Already gone: succeeds without a second log entry.
	if err := r.DeleteContentItem(ctx, req); err != nil {
		t.Errorf("Expected deleting a missing item to succeed, got %v", err)
	}
	types := recentActivityTypes(t, r)
	if !reflect.DeepEqual(types, []models.ActivityType{"note_deleted", "note_added"}) {
		t.Errorf("Expected one add and one delete entry, got %v", types)
	}
}

func TestCountContentItems(t *testing.T) {
	ctx := context.Background()
	r, mem := newTestRepository(t)
	admin := adminSession("a@x.com")

	add := func(sem, subj string) {
		_, err := r.AddContentItem(ctx, &models.AddContentItemRequest{
			Type: models.ContentNotes, Semester: sem, Subject: subj, Title: "T", Link: "https://x.com", AddedBy: admin,
		})
		if err != nil {
			t.Fatalf("Expected no error adding note, got %v", err)
		}
	}
	add("s1", "maths")
	add("s1", "maths")
	add("s1", "physics")
	add("s5", "maths")
	// A malformed leaf where a subject should be.
	mem.Write(ctx, "notes/s6/broken", "oops")

	tests := []struct {
		semester, subject string
		expected          int
	}{
		{"s1", "maths", 2},
		{"s1", "", 3},
		{"", "maths", 3},
		{"", "", 4},
		{"s2", "", 0},
		{"s6", "", 0},
	}
	for _, tt := range tests {
		n, err := r.CountContentItems(ctx, models.ContentNotes, tt.semester, tt.subject)
		if err != nil {
			t.Errorf("Expected no error counting %q/%q, got %v", tt.semester, tt.subject, err)
		}
		if n != tt.expected {
			t.Errorf("Expected %d notes in %q/%q, got %d", tt.expected, tt.semester, tt.subject, n)
		}
	}

	if n, _ := r.CountContentItems(ctx, models.ContentVideos, "", ""); n != 0 {
		t.Errorf("Expected no videos, got %d", n)
	}
	if _, err := r.CountContentItems(ctx, models.ContentNotes, "s42", ""); !errors.Is(err, qerrors.ValidationError) {
		t.Errorf("Expected ValidationError for an unknown semester, got %v", err)
	}
}
