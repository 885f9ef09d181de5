package domain

// SettingHeroBanner holds the storefront hero banner image URL
const SettingHeroBanner = "heroBanner"

// Setting Model, a key/value pair
type Setting struct {
	Key   string `gorm:"primaryKey;column:setting_key;size:191" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}
