package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/fulfillment_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func CreateProduct(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}

	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := models.CreateProduct(c.Request.Context(), tenantId, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func GetProducts(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}

	name := c.Query("name")
	activeOnly := c.Query("active_only") == "true"

	products, err := models.GetProducts(c.Request.Context(), tenantId, name, activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func GetProduct(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}

	product, err := models.GetProduct(c.Request.Context(), tenantId, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func UpdateProduct(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}

	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := models.UpdateProduct(c.Request.Context(), tenantId, id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type stockAdjustment struct {
	Delta decimal.Decimal `json:"delta" binding:"required"`
}

// AdjustProductStock applies a production posting or spoilage correction to
// a product's on-hand counter.
func AdjustProductStock(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}

	var input stockAdjustment
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := models.AdjustProductOnHand(c.Request.Context(), tenantId, id, input.Delta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}
