package handlers

import (
	"errors"
	"net/http"

	"hpp-sizer/internal/api/models"
	"hpp-sizer/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var (
	errLimitExceeded   = errors.New("request exceeds server limit")
	errDatasetNotFound = errors.New("dataset not found")
	errSiteSource      = errors.New("site must name exactly one of dataset_id or series")
	errStrategy        = errors.New("invalid strategy")
)

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, errDatasetNotFound):
		return http.StatusNotFound, "DATASET_NOT_FOUND"
	case errors.Is(err, errLimitExceeded):
		return http.StatusBadRequest, "LIMIT_EXCEEDED"
	case errors.Is(err, errSiteSource), errors.Is(err, errStrategy), errors.Is(err, errStoragePreset):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_INPUT"
	case errors.Is(err, model.ErrInvalidConfiguration):
		return http.StatusBadRequest, "INVALID_CONFIGURATION"
	case errors.Is(err, model.ErrInvalidEconomicParameter):
		return http.StatusBadRequest, "INVALID_ECONOMICS"
	case errors.Is(err, model.ErrInvalidSpec):
		return http.StatusBadRequest, "INVALID_SPEC"
	case errors.As(err, &verrs):
		return http.StatusBadRequest, "INVALID_CONFIG"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := classify(err)
	c.JSON(status, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}

func writeBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		},
	})
}
