package repository

import (
	"context"
	"fmt"
	"time"

	"kknotes/internal/models"
	"kknotes/internal/qerrors"
	"kknotes/internal/store"

	"cloud.google.com/go/firestore"
	"github.com/golang/glog"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// MaxActivityEntries caps the number of entries a single Recent call returns.
const MaxActivityEntries = 500

// ActivityLog is the append-only record of content mutations behind the dashboard.
type ActivityLog interface {
	// Record appends an entry. The timestamp is set by the backend.
	Record(ctx context.Context, entry models.ActivityLogEntry) error
	// Recent returns the last n entries, newest first.
	Recent(ctx context.Context, n int) ([]*models.ActivityLogEntry, error)
}

// StoreActivityLog keeps the activity log under "activity" in the tree store.
type StoreActivityLog struct {
	store store.Store
}

func NewStoreActivityLog(s store.Store) *StoreActivityLog {
	return &StoreActivityLog{store: s}
}

func (l *StoreActivityLog) Record(ctx context.Context, entry models.ActivityLogEntry) error {
	_, err := l.store.Push(ctx, models.StoreActivityPath, map[string]interface{}{
		"type":      string(entry.Type),
		"semester":  entry.Semester,
		"subject":   entry.Subject,
		"contentId": entry.ContentID,
		"title":     entry.Title,
		"timestamp": store.ServerTimestamp(),
		"userId":    entry.UserID,
		"userEmail": entry.UserEmail,
	})
	return err
}

func (l *StoreActivityLog) Recent(ctx context.Context, n int) ([]*models.ActivityLogEntry, error) {
	n = max(1, min(n, MaxActivityEntries))
	nodes, err := l.store.ReadLastN(ctx, models.StoreActivityPath, "timestamp", n)
	if err != nil {
		return nil, qerrors.Backend("reading activity", err)
	}

	entries := make([]*models.ActivityLogEntry, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		entry := &models.ActivityLogEntry{}
		if err := decode(nodes[i].Value, entry); err != nil {
			glog.V(1).Infof("skipping malformed activity entry %s: %v", nodes[i].Key, err)
			continue
		}
		entry.ID = nodes[i].Key
		entries = append(entries, entry)
	}
	return entries, nil
}

// FirestoreActivityLog keeps the activity log in a Firestore collection, which suits the
// dashboard's ordered range queries better than the tree store once the log grows.
type FirestoreActivityLog struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreActivityLog(client *firestore.Client) *FirestoreActivityLog {
	return &FirestoreActivityLog{client: client, collection: models.FirestoreActivityCollection}
}

func (l *FirestoreActivityLog) Record(ctx context.Context, entry models.ActivityLogEntry) error {
	_, _, err := l.client.Collection(l.collection).Add(ctx, map[string]interface{}{
		"type":      string(entry.Type),
		"semester":  entry.Semester,
		"subject":   entry.Subject,
		"contentId": entry.ContentID,
		"title":     entry.Title,
		"timestamp": firestore.ServerTimestamp,
		"userId":    entry.UserID,
		"userEmail": entry.UserEmail,
	})
	if err != nil {
		return fmt.Errorf("adding activity entry: %w", err)
	}
	return nil
}

func (l *FirestoreActivityLog) Recent(ctx context.Context, n int) ([]*models.ActivityLogEntry, error) {
	n = max(1, min(n, MaxActivityEntries))
	iter := l.client.Collection(l.collection).OrderBy("timestamp", firestore.Desc).Limit(n).Documents(ctx)
	defer iter.Stop()

	entries := make([]*models.ActivityLogEntry, 0, n)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if status.Code(err) == codes.NotFound {
			return entries, nil
		}
		if err != nil {
			return nil, qerrors.Backend("reading activity", err)
		}

		// Firestore returns the timestamp as a time.Time, which mapstructure cannot decode.
		data := doc.Data()
		ts, _ := data["timestamp"].(time.Time)
		delete(data, "timestamp")

		entry := &models.ActivityLogEntry{}
		if err := decode(data, entry); err != nil {
			glog.V(1).Infof("skipping malformed activity entry %s: %v", doc.Ref.ID, err)
			continue
		}
		entry.ID = doc.Ref.ID
		if !ts.IsZero() {
			entry.Timestamp = ts.UnixMilli()
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RecentActivity returns the last n activity entries, newest first.
func (r *StoreRepository) RecentActivity(ctx context.Context, n int) ([]*models.ActivityLogEntry, error) {
	return r.activity.Recent(ctx, n)
}
