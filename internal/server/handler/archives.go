package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/valoriste/valoriste/internal/domain"
)

// ArchivesHandler serves archived scan snapshots from blob storage.
type ArchivesHandler struct {
	blobs domain.BlobReader
}

func NewArchivesHandler(blobs domain.BlobReader) *ArchivesHandler {
	return &ArchivesHandler{blobs: blobs}
}

// List returns the snapshot keys archived for a user.
func (h *ArchivesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")

	keys, err := h.blobs.List(r.Context(), "scans/"+userID+"/")
	if err != nil {
		writeError(w, http.StatusBadGateway, "listing archives")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"archives": keys,
		"count":    len(keys),
	})
}

// Get streams one archived snapshot back as newline-delimited JSON, exactly
// as it was written at scan time.
func (h *ArchivesHandler) Get(w http.ResponseWriter, r *http.Request) {
	path := fmt.Sprintf("scans/%s/%s/%s.jsonl",
		r.PathValue("userID"), r.PathValue("date"), r.PathValue("scanID"))

	body, err := h.blobs.Get(r.Context(), path)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "archive not found")
			return
		}
		writeError(w, http.StatusBadGateway, "reading archive")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	// Copy errors here mean the client went away mid-stream.
	_, _ = io.Copy(w, body)
}
