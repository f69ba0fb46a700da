package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const maxCVSize = 10 << 20 // 10 MiB

// handleCVUpload accepts a PDF résumé from members whose rank is on the
// recruiter allow-list.
func handleCVUpload(logger *slog.Logger, store Store, uploadDir string, allowedRanks []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)

		user, err := store.UserByID(r.Context(), sess.UserID)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !slices.Contains(allowedRanks, user.RankName) {
			writeError(w, http.StatusForbidden, "your rank does not allow CV upload")
			return
		}

		if err := r.ParseMultipartForm(maxCVSize); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		file, header, err := r.FormFile("cv")
		if err != nil {
			writeError(w, http.StatusBadRequest, "cv file is missing")
			return
		}
		defer file.Close()

		if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") ||
			header.Header.Get("Content-Type") != "application/pdf" {
			writeError(w, http.StatusBadRequest, "only PDF files are accepted")
			return
		}

		if err := os.MkdirAll(uploadDir, 0o755); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		name := uuid.NewString() + ".pdf"
		path := filepath.Join(uploadDir, name)

		dst, err := os.Create(path)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		defer dst.Close()
		if _, err := io.Copy(dst, file); err != nil {
			os.Remove(path)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := store.SetUserCV(r.Context(), sess.UserID, path); err != nil {
			os.Remove(path)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("cv uploaded", "user_id", sess.UserID, "file", name)
		writeJSON(w, http.StatusCreated, map[string]string{"message": "cv uploaded"})
	}
}
