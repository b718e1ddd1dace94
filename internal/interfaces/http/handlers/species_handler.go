package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orthoatlas/orthoatlas/internal/application/dataset"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
)

// SpeciesHandler serves species metadata resolved against the loaded
// dataset.
type SpeciesHandler struct {
	data   *dataset.Service
	logger logging.Logger
}

// NewSpeciesHandler builds a SpeciesHandler.
func NewSpeciesHandler(data *dataset.Service, logger logging.Logger) *SpeciesHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SpeciesHandler{data: data, logger: logger.Named("species_handler")}
}

// List handles GET /api/v1/species.  Species appear in orthogroup table
// column order with resolved names, gene totals and tree membership.
func (h *SpeciesHandler) List(c *gin.Context) {
	snap, err := h.data.Ensure(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, snap.SpeciesInfos())
}

// Get handles GET /api/v1/species/:code.  Name resolution is total, so an
// unknown code still yields a synthesized placeholder rather than a 404.
func (h *SpeciesHandler) Get(c *gin.Context) {
	snap, err := h.data.Ensure(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, snap.SpeciesInfoFor(c.Param("code")))
}
