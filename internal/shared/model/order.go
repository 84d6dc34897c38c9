package model

import "time"

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid 状态是否合法
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem 订单条目（下单时的商品快照）
type OrderItem struct {
	ProductID string `json:"product_id" bson:"product_id"`
	Name      string `json:"name" bson:"name"`
	Quantity  int    `json:"quantity" bson:"quantity"`
	Price     int64  `json:"price" bson:"price"` // 单价（分）
	Image     string `json:"image,omitempty" bson:"image,omitempty"`
}

// Order 订单
type Order struct {
	ID              string      `json:"id" bson:"_id"`
	OrderNumber     string      `json:"order_number" bson:"order_number"` // 对外订单号，全局唯一
	UserID          string      `json:"user_id" bson:"user_id"`
	Items           []OrderItem `json:"items" bson:"items"`
	Total           int64       `json:"total" bson:"total"` // 总价（分）
	Status          OrderStatus `json:"status" bson:"status"`
	DeliveryAddress string      `json:"delivery_address" bson:"delivery_address"`
	DeliveryTime    string      `json:"delivery_time,omitempty" bson:"delivery_time,omitempty"`
	CustomerName    string      `json:"customer_name,omitempty" bson:"customer_name,omitempty"`
	CustomerPhone   string      `json:"customer_phone,omitempty" bson:"customer_phone,omitempty"`
	PaymentMethod   string      `json:"payment_method" bson:"payment_method"`
	CreatedAt       time.Time   `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" bson:"updated_at"`
}
