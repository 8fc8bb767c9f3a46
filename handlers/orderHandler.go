package handlers

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/fulfillment_backend/models"
	"github.com/gin-gonic/gin"
)

func CreateOrder(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}

	var input models.NewOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := models.CreateOrder(c.Request.Context(), tenantId, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func GetOrders(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}

	customerId, _ := strconv.Atoi(c.Query("customer_id"))
	status := models.OrderStatus(c.Query("status"))

	orders, err := models.GetOrders(c.Request.Context(), tenantId, customerId, status, c.Query("notes"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func GetOrder(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}

	order, err := models.GetOrder(c.Request.Context(), tenantId, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func UpdateOrder(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}

	var input models.NewOrder
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := models.UpdateOrder(c.Request.Context(), tenantId, id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func DeleteOrder(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}

	if err := models.DeleteOrder(c.Request.Context(), tenantId, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ConfirmOrder reserves stock for a Draft order and moves it to Confirmed.
func ConfirmOrder(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}

	order, err := models.ReserveOrderStock(c.Request.Context(), tenantId, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// RevertOrder releases a Confirmed order's reservation back to Draft.
func RevertOrder(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}

	order, err := models.ReleaseOrderStock(c.Request.Context(), tenantId, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// FulfillOrder consumes the reserved stock and closes the order.
func FulfillOrder(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}

	order, err := models.ConsumeOrderStock(c.Request.Context(), tenantId, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func CheckOrderAvailability(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}

	report, err := models.CheckOrderAvailability(c.Request.Context(), tenantId, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
