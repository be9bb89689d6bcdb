package db

// KVState holds one persisted console blob per storage key. Blobs are
// written back wholesale, never patched.
type KVState struct {
	StorageKey string `gorm:"column:storage_key;primaryKey"`
	ValueJSON  string `gorm:"column:value_json;not null;default:''"`
	UpdatedAt  int64  `gorm:"column:updated_at;not null;default:0"`
}

func (KVState) TableName() string { return "kv_state" }
