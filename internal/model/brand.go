package model

import (
	"io"
	"time"
)

// Brand は自動車ブランドを表す。Carはbrand_idでブランドを参照する。
type Brand struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Logo        string    `json:"logo,omitempty"`
	LogoURL     string    `json:"logo_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	CarsCount   *int      `json:"cars_count,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// File はmultipartで送信するファイル。
type File struct {
	Name    string
	Content io.Reader
}

// BrandInput はブランド作成・更新フォームの入力値。
// ロゴファイルはフィールドと同じmultipartリクエストで送信される。
type BrandInput struct {
	Name        string
	Description string
	IsActive    bool
	Logo        *File
}
