package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/fulfillment_backend/config"
	"bitbucket.org/mmdatafocus/fulfillment_backend/utils"
)

type Customer struct {
	ID        int       `gorm:"primary_key" json:"id"`
	TenantId  string    `gorm:"index;not null" json:"tenant_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Email     string    `gorm:"size:100" json:"email"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Address   string    `gorm:"type:text" json:"address"`
	IsActive  *bool     `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type NewCustomer struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	IsActive *bool  `json:"is_active"`
}

func CreateCustomer(ctx context.Context, tenantId string, input NewCustomer) (*Customer, error) {
	db := config.GetDB()

	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, utils.StateViolation("invalid email address")
	}

	isActive := input.IsActive
	if isActive == nil {
		isActive = utils.NewTrue()
	}

	customer := Customer{
		TenantId: tenantId,
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Address:  input.Address,
		IsActive: isActive,
	}
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}

	return &customer, nil
}

func UpdateCustomer(ctx context.Context, tenantId string, id int, input NewCustomer) (*Customer, error) {
	db := config.GetDB()

	customer, err := utils.FetchModel[Customer](ctx, tenantId, id)
	if err != nil {
		return nil, utils.NotFound("customer not found")
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, utils.StateViolation("invalid email address")
	}

	customer.Name = input.Name
	customer.Email = input.Email
	customer.Phone = input.Phone
	customer.Address = input.Address
	if input.IsActive != nil {
		customer.IsActive = input.IsActive
	}

	if err := db.WithContext(ctx).Save(customer).Error; err != nil {
		return nil, err
	}
	_ = utils.RemoveRedisItem[Customer](tenantId, id)

	return customer, nil
}

func GetCustomer(ctx context.Context, tenantId string, id int) (*Customer, error) {
	// cache first
	cached, err := utils.RetrieveRedis[Customer](tenantId, id)
	if err == nil && cached != nil {
		return cached, nil
	}

	customer, err := utils.FetchModel[Customer](ctx, tenantId, id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NotFound("customer not found")
		}
		return nil, err
	}
	_ = utils.StoreRedis[Customer](customer, tenantId, id)

	return customer, nil
}

func GetCustomers(ctx context.Context, tenantId string, name string) ([]*Customer, error) {
	db := config.GetDB()

	dbCtx := db.WithContext(ctx).Where("tenant_id = ?", tenantId)
	if name != "" {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+name+"%")
	}

	var customers []*Customer
	if err := dbCtx.Order("name").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
