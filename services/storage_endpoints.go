package services

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/Afefmejri25/crm/storage"
	"github.com/go-chi/chi/v5"
)

const maxUploadSize = 25 << 20

type StorageEndpoints struct {
	objects ObjectStore
	auth    func(http.Handler) http.Handler
}

func NewStorageEndpoints(objects ObjectStore, auth func(http.Handler) http.Handler) *StorageEndpoints {
	return &StorageEndpoints{objects: objects, auth: auth}
}

// RegisterRoutes mounts the storage API. Reads are public so file_url links work
// without credentials; writes go through auth.
func (e *StorageEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/storage/{bucket}", func(r chi.Router) {
		r.Get("/*", e.GetObjectHandler)
		r.Group(func(r chi.Router) {
			r.Use(e.auth)
			r.Put("/*", e.PutObjectHandler)
			r.Delete("/*", e.DeleteObjectHandler)
		})
	})
}

func (e *StorageEndpoints) PutObjectHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())
	bucket, key := chi.URLParam(r, "bucket"), chi.URLParam(r, "*")
	if !canWriteKey(user, key) {
		writeError(w, ErrForbidden)
		return
	}

	url, err := e.objects.Put(r.Context(), bucket, key, http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		writeError(w, storageError(err))
		return
	}

	slog.Info("Object uploaded", "bucket", bucket, "key", key, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"url": url, "path": key})
}

func (e *StorageEndpoints) DeleteObjectHandler(w http.ResponseWriter, r *http.Request) {
	user := AuthUserFrom(r.Context())
	bucket, key := chi.URLParam(r, "bucket"), chi.URLParam(r, "*")
	if !canWriteKey(user, key) {
		writeError(w, ErrForbidden)
		return
	}

	if err := e.objects.Remove(r.Context(), bucket, key); err != nil {
		writeError(w, storageError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *StorageEndpoints) GetObjectHandler(w http.ResponseWriter, r *http.Request) {
	bucket, key := chi.URLParam(r, "bucket"), chi.URLParam(r, "*")

	f, err := e.objects.Open(r.Context(), bucket, key)
	if err != nil {
		writeError(w, storageError(err))
		return
	}
	defer f.Close()

	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, path.Base(key), time.Time{}, f)
}

func storageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: object", ErrNotFound)
	case errors.Is(err, storage.ErrInvalidKey):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: upload exceeds %d bytes", ErrValidation, maxErr.Limit)
		}
		return err
	}
}
