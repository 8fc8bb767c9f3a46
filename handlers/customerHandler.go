package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/fulfillment_backend/models"
	"github.com/gin-gonic/gin"
)

func CreateCustomer(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}

	var input models.NewCustomer
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	customer, err := models.CreateCustomer(c.Request.Context(), tenantId, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, customer)
}

func GetCustomers(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}

	customers, err := models.GetCustomers(c.Request.Context(), tenantId, c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customers)
}

func GetCustomer(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}

	customer, err := models.GetCustomer(c.Request.Context(), tenantId, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}

func UpdateCustomer(c *gin.Context) {
	tenantId, ok := requireTenant(c)
	if !ok {
		return
	}
	id, ok := pathId(c)
	if !ok {
		return
	}

	var input models.NewCustomer
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	customer, err := models.UpdateCustomer(c.Request.Context(), tenantId, id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, customer)
}
