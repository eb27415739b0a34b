package models

import (
	"time"

	"gorm.io/gorm"
)

// DocumentsBucket is the object storage bucket holding uploaded document files.
const DocumentsBucket = "documents"

type Document struct {
	ID          string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title       string         `gorm:"not null" json:"title"`
	Description *string        `gorm:"type:text" json:"description"`
	FileURL     string         `gorm:"size:1000;not null" json:"file_url"`
	FilePath    string         `gorm:"size:500;not null" json:"file_path"` // object key inside DocumentsBucket
	FileType    string         `gorm:"size:255" json:"file_type"`
	SharedBy    string         `gorm:"type:uuid;not null;index" json:"shared_by"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

type DocumentInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	FileURL     string  `json:"file_url"`
	FilePath    string  `json:"file_path"`
	FileType    string  `json:"file_type"`
}
