package handlers

import (
	"net/http"

	"hpp-sizer/internal/api/models"
	"hpp-sizer/internal/data"

	"github.com/gin-gonic/gin"
)

// DatasetHandler lists the server-side datasets
type DatasetHandler struct {
	catalog *data.Catalog
}

// NewDatasetHandler creates a dataset handler; a nil catalog lists nothing.
func NewDatasetHandler(catalog *data.Catalog) *DatasetHandler {
	return &DatasetHandler{catalog: catalog}
}

// ListDatasets handles GET /api/v1/datasets
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	datasets := []models.DatasetInfo{}
	updatedAt := ""
	if h.catalog != nil {
		for _, d := range h.catalog.Datasets {
			datasets = append(datasets, models.NewDatasetInfo(d))
		}
		updatedAt = h.catalog.UpdatedAt
	}

	c.JSON(http.StatusOK, gin.H{
		"datasets":   datasets,
		"updated_at": updatedAt,
		"count":      len(datasets),
	})
}

// GetDataset handles GET /api/v1/datasets/:id
func (h *DatasetHandler) GetDataset(c *gin.Context) {
	id := c.Param("id")
	if h.catalog != nil {
		if d, ok := h.catalog.Find(id); ok {
			c.JSON(http.StatusOK, models.NewDatasetInfo(d))
			return
		}
	}
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "DATASET_NOT_FOUND",
			Message: "no dataset with id " + id,
		},
	})
}
