package logistics

import "gorm.io/datatypes"

type Building struct {
	ID      uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name    string  `gorm:"type:varchar(255);not null" json:"name"`
	Address *string `gorm:"type:text" json:"address"`
}

type SpaceType struct {
	ID       uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string         `gorm:"type:varchar(255);not null" json:"name"`
	Metadata datatypes.JSON `json:"metadata"`
}

type SpaceTemplate struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"type:varchar(255);not null" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
}

type SpaceTemplateField struct {
	ID         uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	TemplateID uint           `gorm:"not null;index" json:"template_id"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	FieldType  string         `gorm:"type:varchar(20);not null;default:text" json:"field_type"`
	Options    datatypes.JSON `json:"options"`
}

type Space struct {
	ID              uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	BuildingID      uint    `gorm:"not null;index" json:"building_id"`
	SpaceTypeID     *uint   `gorm:"index" json:"space_type_id"`
	SpaceTemplateID *uint   `gorm:"index" json:"space_template_id"`
	Name            string  `gorm:"type:varchar(255);not null" json:"name"`
	Type            *string `gorm:"type:varchar(100)" json:"type"`
	Capacity        *int    `json:"capacity"`
}

type SpaceFieldValue struct {
	ID      uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	SpaceID uint    `gorm:"not null;uniqueIndex:idx_space_field_values_pair" json:"space_id"`
	FieldID uint    `gorm:"not null;uniqueIndex:idx_space_field_values_pair;index" json:"field_id"`
	Value   *string `gorm:"type:text" json:"value"`
}

type StockCategory struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"type:varchar(255);not null" json:"name"`
}

type StockType struct {
	ID       uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string         `gorm:"type:varchar(255);not null" json:"name"`
	Metadata datatypes.JSON `json:"metadata"`
}

type StockItem struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID  uint    `gorm:"not null;index" json:"category_id"`
	StockTypeID *uint   `gorm:"index" json:"stock_type_id"`
	Name        string  `gorm:"type:varchar(255);not null" json:"name"`
	SKU         string  `gorm:"column:sku;type:varchar(100);not null;uniqueIndex" json:"sku"`
	Description *string `gorm:"type:text" json:"description"`
	Status      string  `gorm:"type:varchar(50);not null;default:Available" json:"status"`
}
