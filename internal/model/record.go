package model

import (
	"os"
	"path/filepath"
	"time"
)

// Record is a persisted report: id + metadata + opaque document blob
type Record struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Kind      string    `json:"kind" gorm:"size:32;index"`
	Title     string    `json:"title" gorm:"size:512"`
	Source    string    `json:"source" gorm:"size:2048"`
	WordCount int       `json:"word_count"`
	Metadata  string    `json:"metadata" gorm:"type:text"` // JSON
	Blob      []byte    `json:"-" gorm:"type:longblob"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordKindReport marks a rendered analysis report
const RecordKindReport = "report"

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "clearview-cache")
	}
	return filepath.Join(home, ".clearview", "cache")
}
