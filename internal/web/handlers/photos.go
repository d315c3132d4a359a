package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chenjuwe/photo-dedup/internal/constants"
	"github.com/chenjuwe/photo-dedup/internal/fingerprint"
	"github.com/chenjuwe/photo-dedup/internal/photo"
	"github.com/chenjuwe/photo-dedup/internal/quality"
)

// PhotosHandler registers, lists and removes photos in the catalog.
type PhotosHandler struct {
	catalog *Catalog
	opts    fingerprint.Options
}

// NewPhotosHandler creates a photos handler.
func NewPhotosHandler(catalog *Catalog, opts fingerprint.Options) *PhotosHandler {
	return &PhotosHandler{catalog: catalog, opts: opts}
}

// registerRequest accepts either raw RGBA pixels (hashes and quality are
// computed server side) or precomputed hashes, plus optional feature
// vectors. Pixels are base64 in JSON.
type registerRequest struct {
	ID             string              `json:"id"`
	Pixels         []byte              `json:"pixels,omitempty"`
	Width          int                 `json:"width,omitempty"`
	Height         int                 `json:"height,omitempty"`
	Hashes         fingerprint.HashSet `json:"hashes,omitempty"`
	Feature        []float64           `json:"feature,omitempty"`
	ColorFeature   []float64           `json:"color_feature,omitempty"`
	TextureFeature []float64           `json:"texture_feature,omitempty"`
}

type photoResponse struct {
	ID      string              `json:"id"`
	Hashes  fingerprint.HashSet `json:"hashes"`
	Quality *quality.Metrics    `json:"quality,omitempty"`
}

// Register handles POST /api/v1/photos.
func (h *PhotosHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadBytes)

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "photo id is required")
		return
	}

	item := &photo.Item{
		ID:             req.ID,
		Hashes:         req.Hashes,
		Feature:        req.Feature,
		ColorFeature:   req.ColorFeature,
		TextureFeature: req.TextureFeature,
	}

	if len(req.Pixels) > 0 {
		if req.Width <= 0 || req.Height <= 0 {
			respondError(w, http.StatusBadRequest, "pixel payload requires width and height")
			return
		}
		item.Hashes = fingerprint.Compute(req.Pixels, req.Width, req.Height, h.opts)
		m := quality.Measure(req.Pixels, req.Width, req.Height)
		item.Quality = &m
	}

	if len(item.Hashes) == 0 && !item.HasFeature() {
		respondError(w, http.StatusBadRequest, "photo has no hashes, pixels or features")
		return
	}

	h.catalog.Add(item)
	respondJSON(w, http.StatusCreated, photoResponse{
		ID:      item.ID,
		Hashes:  item.Hashes,
		Quality: item.Quality,
	})
}

// List handles GET /api/v1/photos.
func (h *PhotosHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.catalog.Items()
	out := make([]photoResponse, 0, len(items))
	for _, item := range items {
		out = append(out, photoResponse{
			ID:      item.ID,
			Hashes:  item.Hashes,
			Quality: item.Quality,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"photos": out,
		"count":  len(out),
	})
}

// Delete handles DELETE /api/v1/photos/{id}.
func (h *PhotosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.catalog.Remove(id) {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// Clear handles DELETE /api/v1/photos.
func (h *PhotosHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.catalog.Clear()
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
