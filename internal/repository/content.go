package repository

import (
	"context"
	"sort"

	"kknotes/internal/models"
	"kknotes/internal/qerrors"
	"kknotes/internal/store"
	"kknotes/internal/youtube"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// AddContentItem files a new note or video under {type}/{semester}/{subject}. A semester and a
// subject must both be selected; nothing is written otherwise.
func (r *StoreRepository) AddContentItem(ctx context.Context, req *models.AddContentItemRequest) (*models.ContentItem, error) {
	if err := validateContentLocation(req.Type, req.Semester, req.Subject); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	_, email := sessionUser(req.AddedBy)
	item := &models.ContentItem{
		Title:       req.Title,
		Description: req.Description,
		Link:        req.Link,
		AddedBy:     email,
	}
	if req.Type == models.ContentVideos {
		applyVideoLink(item)
	}

	doc := map[string]interface{}{
		"title":       item.Title,
		"description": item.Description,
		"link":        item.Link,
		"addedBy":     item.AddedBy,
		"addedAt":     store.ServerTimestamp(),
	}
	if item.VideoID != "" {
		doc["videoId"] = item.VideoID
	}
	if item.Thumbnail != "" {
		doc["thumbnail"] = item.Thumbnail
	}

	id, err := r.store.Push(ctx, contentPath(req.Type, req.Semester, req.Subject), doc)
	if err != nil {
		return nil, qerrors.Backend("adding "+req.Type.Singular(), err)
	}
	item.ID = id
	item.AddedAt = r.clock().UnixMilli()

	r.logActivity(ctx, models.ActivityLogEntry{
		Type:      models.ActivityTypeFor(req.Type, "added"),
		Semester:  req.Semester,
		Subject:   req.Subject,
		ContentID: id,
		Title:     item.Title,
	}, req.AddedBy)
	return item, nil
}

// GetContentItem returns a single item, or ContentNotFoundError.
func (r *StoreRepository) GetContentItem(ctx context.Context, t models.ContentType, semester, subject, id string) (*models.ContentItem, error) {
	if err := validateContentLocation(t, semester, subject); err != nil {
		return nil, err
	}
	if !store.ValidKey(id) {
		return nil, qerrors.ContentNotFoundError
	}

	raw, err := r.store.Read(ctx, contentPath(t, semester, subject, id))
	if err != nil {
		return nil, qerrors.Backend("reading "+t.Singular(), err)
	}
	if raw == nil {
		return nil, qerrors.ContentNotFoundError
	}
	item := &models.ContentItem{}
	if err := decode(raw, item); err != nil {
		return nil, qerrors.Backend("decoding "+t.Singular(), err)
	}
	item.ID = id
	return item, nil
}

// ListContentItems returns the items filed under a subject, newest first.
func (r *StoreRepository) ListContentItems(ctx context.Context, t models.ContentType, semester, subject string) ([]*models.ContentItem, error) {
	if err := validateContentLocation(t, semester, subject); err != nil {
		return nil, err
	}

	raw, err := r.store.Read(ctx, contentPath(t, semester, subject))
	if err != nil {
		return nil, qerrors.Backend("listing "+string(t), err)
	}

	items := make([]*models.ContentItem, 0)
	for id, v := range children(raw) {
		item := &models.ContentItem{}
		if err := decode(v, item); err != nil {
			glog.V(1).Infof("skipping malformed %s %s: %v", t.Singular(), id, err)
			continue
		}
		item.ID = id
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt != items[j].AddedAt {
			return items[i].AddedAt > items[j].AddedAt
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

// UpdateContentItem patches the given fields of an item. Fields left nil are untouched.
func (r *StoreRepository) UpdateContentItem(ctx context.Context, req *models.UpdateContentItemRequest) (*models.ContentItem, error) {
	if err := validateContentLocation(req.Type, req.Semester, req.Subject); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.Title == nil && req.Description == nil && req.Link == nil {
		return nil, qerrors.NewInvalidRequest("body", "nothing to update")
	}

	item, err := r.GetContentItem(ctx, req.Type, req.Semester, req.Subject, req.ItemID)
	if err != nil {
		return nil, err
	}

	patch := map[string]interface{}{"updatedAt": store.ServerTimestamp()}
	if req.Title != nil {
		item.Title = *req.Title
		patch["title"] = item.Title
	}
	if req.Description != nil {
		item.Description = *req.Description
		patch["description"] = item.Description
	}
	if req.Link != nil {
		item.Link = *req.Link
		if req.Type == models.ContentVideos {
			item.VideoID, item.Thumbnail = "", ""
			applyVideoLink(item)
			// nil removes the stale values when the new link has no id.
			patch["videoId"] = nilIfEmpty(item.VideoID)
			patch["thumbnail"] = nilIfEmpty(item.Thumbnail)
		}
		patch["link"] = item.Link
	}

	err = r.store.Update(ctx, contentPath(req.Type, req.Semester, req.Subject, req.ItemID), patch)
	if err != nil {
		return nil, qerrors.Backend("updating "+req.Type.Singular(), err)
	}
	item.UpdatedAt = r.clock().UnixMilli()

	r.logActivity(ctx, models.ActivityLogEntry{
		Type:      models.ActivityTypeFor(req.Type, "edited"),
		Semester:  req.Semester,
		Subject:   req.Subject,
		ContentID: req.ItemID,
		Title:     item.Title,
	}, req.EditedBy)
	return item, nil
}

// DeleteContentItem removes a single item. The item is read first only to describe it in the
// activity log; deleting an item that is already gone succeeds.
func (r *StoreRepository) DeleteContentItem(ctx context.Context, req *models.DeleteContentItemRequest) error {
	if err := validateContentLocation(req.Type, req.Semester, req.Subject); err != nil {
		return err
	}
	if !store.ValidKey(req.ItemID) {
		return qerrors.NewInvalidRequest("itemID", "is invalid")
	}

	existing, lookupErr := r.GetContentItem(ctx, req.Type, req.Semester, req.Subject, req.ItemID)

	if err := r.store.Remove(ctx, contentPath(req.Type, req.Semester, req.Subject, req.ItemID)); err != nil {
		return qerrors.Backend("deleting "+req.Type.Singular(), err)
	}

	if lookupErr != nil {
		glog.Warningf("not logging deletion of %s %s: %v\n", req.Type.Singular(), req.ItemID, lookupErr)
		return nil
	}
	r.logActivity(ctx, models.ActivityLogEntry{
		Type:      models.ActivityTypeFor(req.Type, "deleted"),
		Semester:  req.Semester,
		Subject:   req.Subject,
		ContentID: req.ItemID,
		Title:     existing.Title,
	}, req.DeletedBy)
	return nil
}

// CountContentItems counts the items of a type. An empty semester or subject counts across all
// of them. Missing or malformed nodes count as empty.
func (r *StoreRepository) CountContentItems(ctx context.Context, t models.ContentType, semester, subject string) (int, error) {
	if t != models.ContentNotes && t != models.ContentVideos {
		return 0, qerrors.InvalidContentTypeError
	}
	if subject != "" && !store.ValidKey(subject) {
		return 0, qerrors.NewInvalidRequest("subject", "is invalid")
	}
	if semester != "" {
		if !models.IsValidSemester(semester) {
			return 0, qerrors.InvalidSemesterError
		}
		return r.countInSemester(ctx, t, semester, subject)
	}

	semesters := models.Semesters()
	counts := make([]int, len(semesters))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range semesters {
		i, s := i, s
		g.Go(func() error {
			n, err := r.countInSemester(gctx, t, s.ID, subject)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

func (r *StoreRepository) countInSemester(ctx context.Context, t models.ContentType, semester, subject string) (int, error) {
	raw, err := r.store.Read(ctx, store.Join(string(t), semester, subject))
	if err != nil {
		return 0, qerrors.Backend("counting "+string(t), err)
	}
	if subject != "" {
		return len(children(raw)), nil
	}

	total := 0
	for _, items := range children(raw) {
		total += len(children(items))
	}
	return total, nil
}

// Helpers

func contentPath(t models.ContentType, semester, subject string, id ...string) string {
	return store.Join(append([]string{string(t), semester, subject}, id...)...)
}

func validateContentLocation(t models.ContentType, semester, subject string) error {
	if t != models.ContentNotes && t != models.ContentVideos {
		return qerrors.InvalidContentTypeError
	}
	if err := validateSemester(semester); err != nil {
		return err
	}
	return validateSubjectKey(subject)
}

// applyVideoLink repairs the item's link and derives the video id and thumbnail from it.
func applyVideoLink(item *models.ContentItem) {
	link := youtube.Normalize(item.Link)
	if link.Usable {
		item.Link = link.URL
	}
	item.VideoID = youtube.ExtractID(item.Link)
	if link.YouTubeID != "" {
		item.Thumbnail = youtube.Thumbnail(link.YouTubeID)
	}
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
