package model

import "time"

// Product 商品（鲜花）
//
// 价格以分为单位存储，避免浮点误差。
type Product struct {
	ID                   string    `json:"id" bson:"_id"`
	Name                 string    `json:"name" bson:"name"`
	Description          string    `json:"description" bson:"description"`
	PricePerStem         int64     `json:"price_per_stem" bson:"price_per_stem"`                   // 单支价格（分）
	BouquetPrice         int64     `json:"bouquet_price" bson:"bouquet_price"`                     // 花束价格（分）
	OriginalPricePerStem int64     `json:"original_price_per_stem" bson:"original_price_per_stem"` // 折前单支价格
	OriginalBouquetPrice int64     `json:"original_bouquet_price" bson:"original_bouquet_price"`   // 折前花束价格
	Discount             int       `json:"discount" bson:"discount"` // 折扣百分比 0-100
	Category             string    `json:"category" bson:"category"`
	Image                string    `json:"image,omitempty" bson:"image,omitempty"` // 对象存储 key
	InStock              bool      `json:"in_stock" bson:"in_stock"`
	CreatedAt            time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" bson:"updated_at"`
}
