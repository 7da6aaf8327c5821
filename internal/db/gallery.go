package db

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CapabilitySlotCount is the number of capability cards per division page.
const CapabilitySlotCount = 4

// GalleryImage 定义各业务板块的作品图片
//
// DisplayOrder is unique within a division by convention only. CapabilitySlot,
// when set, is held by at most one image per division; the service clears it
// from other rows before assigning.
type GalleryImage struct {
	gorm.Model
	ImageURL       string                      `gorm:"size:512;not null" json:"image_url"`
	StorageKey     string                      `gorm:"size:255" json:"storage_key"`
	AltText        string                      `gorm:"size:255;not null" json:"alt_text"`
	Caption        string                      `gorm:"size:500" json:"caption"`
	Project        string                      `gorm:"size:200" json:"project"`
	Title          string                      `gorm:"size:200" json:"title"`
	SEODescription string                      `gorm:"column:seo_description;size:500" json:"seo_description"`
	Keywords       datatypes.JSONSlice[string] `json:"keywords"`
	Division       string                      `gorm:"size:32;not null;index:idx_gallery_division_order,priority:1" json:"division"`
	DisplayOrder   int                         `gorm:"default:0;index:idx_gallery_division_order,priority:2" json:"display_order"`
	Featured       bool                        `gorm:"default:false" json:"featured"`
	CapabilitySlot *int                        `json:"capability_slot"`
	Width          int                         `json:"width"`
	Height         int                         `json:"height"`
	Bytes          int64                       `json:"bytes"`
}

// TableName keeps the table name stable across model renames.
func (GalleryImage) TableName() string {
	return "gallery_images"
}
