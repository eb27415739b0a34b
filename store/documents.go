package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Afefmejri25/crm/models"
	"github.com/google/uuid"
)

type DocumentState struct {
	Documents []models.Document
	Query     string
	Loading   bool
	Error     string
}

// Upload describes a file to share.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Title       string
	Description *string
}

type DocumentStore struct {
	observable[DocumentState]
	repo          DocumentRepository
	objects       ObjectStorage
	notifications NotificationRepository
	notify        func(models.Notification)
	userID        func() string
}

func NewDocumentStore(repo DocumentRepository, objects ObjectStorage, notifications NotificationRepository, userID func() string, notify func(models.Notification)) *DocumentStore {
	return &DocumentStore{repo: repo, objects: objects, notifications: notifications, userID: userID, notify: notify}
}

func (s *DocumentStore) State() DocumentState { return s.snapshot() }

func (s *DocumentStore) FetchDocuments(ctx context.Context) error {
	return s.SearchDocuments(ctx, "")
}

// SearchDocuments loads documents whose title or description contains query,
// ignoring case. An empty query loads everything.
func (s *DocumentStore) SearchDocuments(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	gen := s.beginFetch(func(st *DocumentState) {
		st.Loading = true
		st.Query = query
	})

	docs, err := s.repo.ListDocuments(ctx, query)
	if err != nil {
		s.finishFetch(gen, func(st *DocumentState) {
			st.Loading = false
			st.Error = err.Error()
		})
		return err
	}

	s.finishFetch(gen, func(st *DocumentState) {
		st.Documents = docs
		st.Loading = false
		st.Error = ""
	})
	return nil
}

// UploadDocument stores the file and then its metadata. If the metadata insert
// fails the stored file is removed again.
func (s *DocumentStore) UploadDocument(ctx context.Context, upload Upload) (*models.Document, error) {
	userID := s.userID()
	if userID == "" {
		return nil, s.fail(fmt.Errorf("upload requires a signed-in user"))
	}
	if strings.TrimSpace(upload.Title) == "" {
		return nil, s.fail(fmt.Errorf("document title is required"))
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	contentType := upload.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	key := userID + "/" + uuid.NewString() + ext

	if _, err := s.objects.Upload(ctx, models.DocumentsBucket, key, upload.Body, contentType); err != nil {
		return nil, s.fail(err)
	}

	doc, err := s.repo.CreateDocument(ctx, models.DocumentInput{
		Title:       upload.Title,
		Description: upload.Description,
		FilePath:    key,
		FileType:    contentType,
	})
	if err != nil {
		s.removeObject(ctx, key)
		return nil, s.fail(err)
	}

	s.commit(func(st *DocumentState) {
		st.Documents = append([]models.Document{*doc}, st.Documents...)
		st.Loading = false
		st.Error = ""
	})

	n, err := s.notifications.CreateNotification(ctx, models.NotificationInput{
		Title:       "New Document Uploaded",
		Message:     fmt.Sprintf("%s has been uploaded to the document library", doc.Title),
		RecipientID: userID,
	})
	if err != nil {
		return doc, s.fail(fmt.Errorf("document shared but notification failed: %w", err))
	}
	if s.notify != nil {
		s.notify(*n)
	}
	return doc, nil
}

// DeleteDocument removes the metadata first so the document disappears from every
// list, then the stored file. A file removal failure is reported but the
// document stays deleted.
func (s *DocumentStore) DeleteDocument(ctx context.Context, id string) error {
	st := s.snapshot()
	idx := slices.IndexFunc(st.Documents, func(d models.Document) bool { return d.ID == id })
	if idx < 0 {
		return s.fail(fmt.Errorf("document %s is not loaded", id))
	}
	doc := st.Documents[idx]

	if err := s.repo.DeleteDocument(ctx, id); err != nil {
		return s.fail(err)
	}

	s.commit(func(st *DocumentState) {
		st.Documents = slices.DeleteFunc(slices.Clone(st.Documents), func(d models.Document) bool { return d.ID == id })
		st.Loading = false
		st.Error = ""
	})

	if err := s.objects.Remove(ctx, models.DocumentsBucket, doc.FilePath); err != nil {
		return s.fail(fmt.Errorf("document deleted but file removal failed: %w", err))
	}
	return nil
}

// removeObject cleans up after a failed upload, even if ctx was cancelled.
func (s *DocumentStore) removeObject(ctx context.Context, key string) {
	cleanup, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.objects.Remove(cleanup, models.DocumentsBucket, key); err != nil {
		slog.Warn("Failed to remove orphaned upload", "error", err, "key", key)
	}
}

func (s *DocumentStore) fail(err error) error {
	s.set(func(st *DocumentState) { st.Error = err.Error() })
	return err
}
