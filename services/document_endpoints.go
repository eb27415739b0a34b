package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Afefmejri25/crm/models"
	"github.com/Afefmejri25/crm/repository"
	"github.com/Afefmejri25/crm/storage"
	"github.com/go-chi/chi/v5"
)

// ObjectStore is the object storage the document and storage endpoints need.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, r io.Reader) (string, error)
	Open(ctx context.Context, bucket, key string) (io.ReadSeekCloser, error)
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Remove(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}

type DocumentEndpoints struct {
	repo    repository.DocumentRepository
	objects ObjectStore
}

func NewDocumentEndpoints(repo repository.DocumentRepository, objects ObjectStore) *DocumentEndpoints {
	return &DocumentEndpoints{repo: repo, objects: objects}
}

func (e *DocumentEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/documents", func(r chi.Router) {
		r.Get("/", e.ListDocumentsHandler)
		r.Post("/", e.CreateDocumentHandler)
		r.Get("/{id}", e.GetDocumentHandler)
		r.Delete("/{id}", e.DeleteDocumentHandler)
	})
}

// ListDocumentsHandler lists shared documents, filtered by ?q= when given.
func (e *DocumentEndpoints) ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	docs, err := e.repo.ListDocuments(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// CreateDocumentHandler records metadata for an object already uploaded to the
// documents bucket. The stored file_url is derived from the object key.
func (e *DocumentEndpoints) CreateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())

	var input models.DocumentInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, err)
		return
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" || input.FilePath == "" {
		writeError(w, fmt.Errorf("%w: title and file_path are required", ErrValidation))
		return
	}
	if !canWriteKey(user, input.FilePath) {
		writeError(w, ErrForbidden)
		return
	}

	exists, err := e.objects.Exists(r.Context(), models.DocumentsBucket, input.FilePath)
	if err != nil && !errors.Is(err, storage.ErrInvalidKey) {
		writeError(w, err)
		return
	}
	if !exists {
		writeError(w, fmt.Errorf("%w: file_path does not point to an uploaded object", ErrValidation))
		return
	}

	doc := &models.Document{
		Title:       input.Title,
		Description: input.Description,
		FileURL:     e.objects.PublicURL(models.DocumentsBucket, input.FilePath),
		FilePath:    input.FilePath,
		FileType:    input.FileType,
		SharedBy:    user.ID,
	}
	if err := e.repo.CreateDocument(r.Context(), doc); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("Document shared", "document_id", doc.ID, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, doc)
}

func (e *DocumentEndpoints) GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := e.load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocumentHandler removes the metadata row. The object itself is removed
// separately through the storage API by the client.
func (e *DocumentEndpoints) DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())

	doc, err := e.load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if doc.SharedBy != user.ID && !user.IsAdmin() {
		writeError(w, ErrForbidden)
		return
	}

	if err := e.repo.DeleteDocument(r.Context(), doc.ID); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("Document deleted", "document_id", doc.ID, "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (e *DocumentEndpoints) load(ctx context.Context, id string) (*models.Document, error) {
	if !isValidUUID(id) {
		return nil, fmt.Errorf("%w: document", ErrNotFound)
	}
	doc, err := e.repo.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document", ErrNotFound)
	}
	return doc, nil
}

// canWriteKey reports whether the caller may write an object key. Agents own the
// "<user id>/" prefix; admins may write anywhere.
func canWriteKey(user *AuthUser, key string) bool {
	return user.IsAdmin() || strings.HasPrefix(key, user.ID+"/")
}
