package recipe

// Tag 标签, name 与 slug 全局唯一
type Tag struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"type:varchar(200);uniqueIndex;not null" json:"name"`
	Color string `gorm:"type:varchar(7);not null;default:'#49B64E'" json:"color"`
	Slug  string `gorm:"type:varchar(200);uniqueIndex;not null" json:"slug"`
}

func (Tag) TableName() string {
	return "tags"
}

// Ingredient 食材, (name, measurement_unit) 唯一
type Ingredient struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"type:varchar(200);not null;index;uniqueIndex:uniq_ingredient_name_unit" json:"name"`
	MeasurementUnit string `gorm:"type:varchar(200);not null;uniqueIndex:uniq_ingredient_name_unit" json:"measurement_unit"`
}

func (Ingredient) TableName() string {
	return "ingredients"
}
