package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chenjuwe/photo-dedup/internal/constants"
	"github.com/chenjuwe/photo-dedup/internal/grouping"
	"github.com/chenjuwe/photo-dedup/internal/similarity"
)

// GroupsHandler runs duplicate grouping over the catalog.
type GroupsHandler struct {
	catalog *Catalog
	fuser   *similarity.Fuser
	cfg     grouping.Config
}

// NewGroupsHandler creates a groups handler. A nil fuser selects default
// weights.
func NewGroupsHandler(catalog *Catalog, fuser *similarity.Fuser, cfg grouping.Config) *GroupsHandler {
	return &GroupsHandler{catalog: catalog, fuser: fuser, cfg: cfg}
}

type findGroupsRequest struct {
	Threshold float64 `json:"threshold"`
	Limit     int     `json:"limit"`
}

// Find handles POST /api/v1/groups. An empty body uses the default
// threshold.
func (h *GroupsHandler) Find(w http.ResponseWriter, r *http.Request) {
	req := findGroupsRequest{
		Threshold: constants.DefaultSimilarityThreshold,
		Limit:     constants.DefaultGroupLimit,
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, errInvalidRequestBody)
			return
		}
	}
	if req.Threshold < 0 || req.Threshold > 100 {
		respondError(w, http.StatusBadRequest, "threshold must be between 0 and 100")
		return
	}
	if req.Limit <= 0 {
		req.Limit = constants.DefaultGroupLimit
	}

	engine := grouping.NewEngine(h.fuser, h.cfg)
	groups, err := engine.FindAllSimilarGroups(r.Context(), h.catalog.Items(), req.Threshold)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			respondError(w, http.StatusRequestTimeout, "grouping cancelled")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if len(groups) > req.Limit {
		groups = groups[:req.Limit]
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"groups": groups,
		"count":  len(groups),
	})
}
