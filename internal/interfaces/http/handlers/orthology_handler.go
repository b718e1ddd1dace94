package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orthoatlas/orthoatlas/internal/application/orthology"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
)

// OrthologyHandler serves orthologue and orthogroup lookups.
type OrthologyHandler struct {
	orthology orthology.Service
	logger    logging.Logger
}

// NewOrthologyHandler builds an OrthologyHandler.
func NewOrthologyHandler(svc orthology.Service, logger logging.Logger) *OrthologyHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &OrthologyHandler{orthology: svc, logger: logger.Named("orthology_handler")}
}

// SearchOrthologues handles GET /api/v1/orthologues/:gene.  A gene that
// belongs to no orthogroup is a successful response with success=false and
// an explanatory message, not an HTTP error.
func (h *OrthologyHandler) SearchOrthologues(c *gin.Context) {
	result, err := h.orthology.SearchOrthologues(c.Request.Context(), c.Param("gene"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

// GeneOrthogroup handles GET /api/v1/genes/:gene/orthogroup.
func (h *OrthologyHandler) GeneOrthogroup(c *gin.Context) {
	result, err := h.orthology.FindGeneOrthogroup(c.Request.Context(), c.Param("gene"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

// OrthogroupGenes handles GET /api/v1/orthogroups/:id/genes.  Unknown
// orthogroups yield an empty gene map.
func (h *OrthologyHandler) OrthogroupGenes(c *gin.Context) {
	result, err := h.orthology.OrthogroupGenes(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

// OrthogroupTree handles GET /api/v1/orthogroups/:id/tree.
func (h *OrthologyHandler) OrthogroupTree(c *gin.Context) {
	result, err := h.orthology.OrthogroupTree(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}
