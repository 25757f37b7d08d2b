package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"crowdfund/logger"
	"crowdfund/storage"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

// Media streams stored images under /media/{key}.
func Media(store storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if key == "" || strings.Contains(key, "..") {
			http.NotFound(w, r)
			return
		}

		obj, err := store.Get(r.Context(), key)
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			logger.Error("read media object", "key", key, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer obj.Reader.Close()

		w.Header().Set("Content-Type", obj.ContentType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		if obj.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
		}
		if !obj.LastModified.IsZero() {
			w.Header().Set("Last-Modified", obj.LastModified.UTC().Format(http.TimeFormat))
		}
		if _, err := io.Copy(w, obj.Reader); err != nil {
			logger.Warn("stream media object", "key", key, "error", err)
		}
	}
}

// Health reports whether the database answers a ping.
func Health(db *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			logger.Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
