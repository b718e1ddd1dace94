package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orthoatlas/orthoatlas/internal/application/treesearch"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// SearchHandler serves phylogenetic tree queries.
type SearchHandler struct {
	search treesearch.Service
	logger logging.Logger
}

// NewSearchHandler builds a SearchHandler.
func NewSearchHandler(search treesearch.Service, logger logging.Logger) *SearchHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SearchHandler{search: search, logger: logger.Named("search_handler")}
}

// Search handles GET /api/v1/tree/search?kind=&q=&limit=.
// kind selects the query type: gene, species, clade or common_ancestor.
// For common_ancestor the q parameter holds comma-separated species names.
func (h *SearchHandler) Search(c *gin.Context) {
	kind, err := treesearch.ParseKind(c.Query("kind"))
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := parseLimit(c)
	if err != nil {
		respondError(c, err)
		return
	}

	results, err := h.search.Search(c.Request.Context(), kind, c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, results)
}

type ancestorRequest struct {
	Species []string `json:"species" binding:"required"`
}

// CommonAncestor handles POST /api/v1/tree/ancestor.  The body names two
// or more species; the response holds the last common ancestor clade, or
// an empty list when fewer than two names resolve to tree leaves.
func (h *SearchHandler) CommonAncestor(c *gin.Context) {
	var req ancestorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.New(errors.ErrCodeBadRequest,
			"request body must contain a species list"))
		return
	}

	results, err := h.search.FindCommonAncestor(c.Request.Context(), req.Species)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, results)
}
