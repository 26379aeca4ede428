// internal/controller/segment_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/campaignify/xenocrm-backend/internal/service"
)

type SegmentController struct {
	SegmentService *service.SegmentService
}

func (c *SegmentController) CreateSegment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Rules       json.RawMessage `json:"rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	segment, err := c.SegmentService.CreateSegment(body.Name, body.Description, body.Rules)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, segment)
}

func (c *SegmentController) ListSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := c.SegmentService.ListSegments()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, segments)
}

// PreviewAudience resolves the segment's current audience. The result is
// live: it changes as customers change, and is not what a past campaign
// run dispatched to.
func (c *SegmentController) PreviewAudience(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid segment id", http.StatusBadRequest)
		return
	}

	segment, err := c.SegmentService.GetSegment(id)
	if err != nil {
		writeError(w, err)
		return
	}

	audience, warnings, err := c.SegmentService.ResolveAudience(segment)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"segment_id": id,
		"audience":   audience,
		"size":       len(audience),
		"warnings":   warnings,
	})
}

func (c *SegmentController) AudienceCount(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid segment id", http.StatusBadRequest)
		return
	}

	segment, err := c.SegmentService.GetSegment(id)
	if err != nil {
		writeError(w, err)
		return
	}

	count, warnings, err := c.SegmentService.CountAudience(segment)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"segment_id": id,
		"size":       count,
		"warnings":   warnings,
	})
}
