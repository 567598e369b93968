package domain

import (
	"time"

	"geodash/internal/jsonfield"
)

// SearchHistory is one saved geolocation lookup. Rows are immutable after
// creation; only the owning user may read or delete them.
type SearchHistory struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64           `gorm:"not null;index:idx_search_histories_user_created,priority:1" json:"userId"`
	IPAddress string          `gorm:"type:text;not null" json:"ipAddress"`
	City      string          `gorm:"type:text" json:"city"`
	Region    string          `gorm:"type:text" json:"region"`
	Country   string          `gorm:"type:text" json:"country"`
	ISP       string          `gorm:"type:text" json:"isp"`
	ASN       string          `gorm:"type:text" json:"asn"`
	Timezone  string          `gorm:"type:text" json:"timezone"`
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	GeoInfo   jsonfield.JSON  `gorm:"type:jsonb" json:"geoInfo"`
	CreatedAt time.Time       `gorm:"not null;index:idx_search_histories_user_created,priority:2,sort:desc" json:"createdAt"`
}

func (SearchHistory) TableName() string { return "search_histories" }
