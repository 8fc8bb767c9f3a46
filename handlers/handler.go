package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/fulfillment_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// decimalGreaterThanZero backs the `dgt0` binding tag: quantities must be
// strictly positive decimals.
func decimalGreaterThanZero(fl validator.FieldLevel) bool {
	d, ok := fl.Field().Interface().(decimal.Decimal)
	return ok && d.IsPositive()
}

// RegisterValidations installs the custom binding tags on gin's validator.
// Called once from main before any route is served.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("dgt0", decimalGreaterThanZero)
	}
}

// requireTenant resolves the caller's tenant id from the request context. A
// request that reached a handler without one is a configuration error, not a
// business error.
func requireTenant(c *gin.Context) (string, bool) {
	tenantId, ok := utils.GetTenantIdFromContext(c.Request.Context())
	if !ok || tenantId == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant not resolved for request"})
		return "", false
	}
	return tenantId, true
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func respondBindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(err)})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// respondError maps the model error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var notFound *utils.NotFoundError
	var stateViolation *utils.StateViolationError
	var capacity *utils.CapacityError
	var conflict *utils.ConflictError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Msg})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &stateViolation):
		c.JSON(http.StatusBadRequest, gin.H{"error": stateViolation.Msg})
	case errors.As(err, &capacity):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": capacity.Error(),
			"detail": gin.H{
				"product_id":   capacity.ProductId,
				"product_name": capacity.ProductName,
				"available":    capacity.Available,
				"required":     capacity.Required,
			},
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Msg})
	default:
		// Echo the request's correlation id so unexpected failures can be
		// matched against server logs.
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "correlation_id": cid})
	}
}
