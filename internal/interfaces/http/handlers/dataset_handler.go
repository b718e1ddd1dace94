package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orthoatlas/orthoatlas/internal/application/dataset"
	"github.com/orthoatlas/orthoatlas/internal/infrastructure/monitoring/logging"
)

// DatasetHandler exposes dataset introspection and the administrative
// reload endpoint.
type DatasetHandler struct {
	data   *dataset.Service
	logger logging.Logger
}

// NewDatasetHandler builds a DatasetHandler.
func NewDatasetHandler(data *dataset.Service, logger logging.Logger) *DatasetHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &DatasetHandler{data: data, logger: logger.Named("dataset_handler")}
}

// Stats handles GET /api/v1/dataset/stats.
func (h *DatasetHandler) Stats(c *gin.Context) {
	snap, err := h.data.Ensure(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, snap.Stats())
}

// Reload handles POST /api/v1/dataset/reload.  The previous snapshot keeps
// serving readers until the new one is fully bound; on failure the old
// snapshot stays in place and the error is returned.
func (h *DatasetHandler) Reload(c *gin.Context) {
	h.logger.Info("dataset reload requested",
		logging.String("client_ip", c.ClientIP()))

	snap, err := h.data.Reload(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, snap.Stats())
}
