package debugserver

import (
	"net/http"

	"github.com/Garsondee/Slippy-Sense/internal/mapview"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type handlers struct {
	src Source
}

type stateResponse struct {
	Tick      int              `json:"tick"`
	Zoom      int              `json:"zoom"`
	State     string           `json:"state"`
	Reference string           `json:"reference"`
	Center    *centerResponse  `json:"center"`
	Viewport  mapview.Viewport `json:"viewport"`
	Counters  map[string]int   `json:"counters"`
}

type centerResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type markerRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lon *float64 `json:"lon" binding:"required"`
}

// snapshot writes 503 and returns nil until the first snapshot is published.
func (h *handlers) snapshot(c *gin.Context) *mapview.Snapshot {
	s := h.src.Snapshot()
	if s == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "engine not ready"})
	}
	return s
}

func (h *handlers) state(c *gin.Context) {
	s := h.snapshot(c)
	if s == nil {
		return
	}
	resp := stateResponse{
		Tick:      s.Tick,
		Zoom:      s.Zoom,
		State:     s.State,
		Reference: s.Reference,
		Viewport:  s.Viewport,
		Counters:  s.Counters,
	}
	if s.CenterOK {
		resp.Center = &centerResponse{Lat: s.CenterLat, Lon: s.CenterLon}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) frontSlots(c *gin.Context) {
	s := h.snapshot(c)
	if s == nil {
		return
	}
	slots := s.FrontSlots
	if c.Query("stale") == "true" {
		slots = make([]mapview.SlotSnapshot, 0, len(s.FrontSlots))
		for _, sl := range s.FrontSlots {
			if sl.Stale {
				slots = append(slots, sl)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"zoom": s.Zoom, "slots": slots})
}

func (h *handlers) listMarkers(c *gin.Context) {
	s := h.snapshot(c)
	if s == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"markers": s.Markers})
}

func (h *handlers) addMarker(c *gin.Context) {
	var req markerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Lat < -90 || *req.Lat > 90 || *req.Lon < -180 || *req.Lon > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat/lon out of range"})
		return
	}
	id := h.src.AddMarker(*req.Lat, *req.Lon)
	c.JSON(http.StatusAccepted, gin.H{"id": id.String()})
}

func (h *handlers) removeMarker(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid marker id"})
		return
	}
	h.src.RemoveMarker(id)
	c.Status(http.StatusAccepted)
}
