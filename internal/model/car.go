package model

import (
	"sort"
	"time"
)

// CarStatus は在庫状態を表す。
type CarStatus string

const (
	CarStatusAvailable CarStatus = "available"
	CarStatusSold      CarStatus = "sold"
	CarStatusReserved  CarStatus = "reserved"
)

// Label は画面表示用の状態ラベルを返す。未知の状態はそのまま返す。
func (s CarStatus) Label() string {
	switch s {
	case CarStatusAvailable:
		return "Available"
	case CarStatusSold:
		return "Sold"
	case CarStatusReserved:
		return "Reserved"
	default:
		return string(s)
	}
}

// ImageType は車両画像の種別を表す。
type ImageType string

const (
	ImageTypeMain     ImageType = "main"
	ImageTypeGallery  ImageType = "gallery"
	ImageTypeInterior ImageType = "interior"
	ImageTypeExterior ImageType = "exterior"
)

// Valid は画像種別がAPIの受け付ける値かどうかを返す。
func (t ImageType) Valid() bool {
	switch t {
	case ImageTypeMain, ImageTypeGallery, ImageTypeInterior, ImageTypeExterior:
		return true
	}
	return false
}

// Car は車両を表す集約ルート。
// Images と Specifications はCarに所有され、Brandはbrand_idによる弱参照。
type Car struct {
	ID               int64              `json:"id"`
	BrandID          int64              `json:"brand_id"`
	Brand            *Brand             `json:"brand,omitempty"`
	Name             string             `json:"name"`
	Slug             string             `json:"slug"`
	Description      string             `json:"description,omitempty"`
	Status           CarStatus          `json:"status"`
	RegistrationYear string             `json:"registration_year,omitempty"`
	Mileage          *int               `json:"mileage,omitempty"`
	BodyType         string             `json:"body_type,omitempty"`
	Engine           string             `json:"engine,omitempty"`
	FuelType         string             `json:"fuel_type,omitempty"`
	Transmission     string             `json:"transmission,omitempty"`
	PowerHP          *int               `json:"power_hp,omitempty"`
	PowerKW          *int               `json:"power_kw,omitempty"`
	VMax             *int               `json:"v_max,omitempty"`
	Acceleration     string             `json:"acceleration,omitempty"`
	Price            *float64           `json:"price,omitempty"`
	Currency         string             `json:"currency,omitempty"`
	ColorExterior    string             `json:"color_exterior,omitempty"`
	ColorInterior    string             `json:"color_interior,omitempty"`
	Doors            *int               `json:"doors,omitempty"`
	Seats            *int               `json:"seats,omitempty"`
	VIN              string             `json:"vin,omitempty"`
	MetaTitle        string             `json:"meta_title,omitempty"`
	MetaDescription  string             `json:"meta_description,omitempty"`
	IsFeatured       bool               `json:"is_featured"`
	ViewCount        int                `json:"view_count"`
	Images           []CarImage         `json:"images,omitempty"`
	Specifications   []CarSpecification `json:"specifications,omitempty"`
	PrimaryImage     *CarImage          `json:"primary_image,omitempty"`
	FormattedPrice   string             `json:"formatted_price,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	DeletedAt        *time.Time         `json:"deleted_at,omitempty"`
}

// CarImage は車両画像を表す。sort_orderが表示順を決める。
type CarImage struct {
	ID           int64     `json:"id"`
	CarID        int64     `json:"car_id"`
	ImagePath    string    `json:"image_path"`
	ImageURL     string    `json:"image_url,omitempty"`
	FullImageURL string    `json:"full_image_url,omitempty"`
	ImageType    ImageType `json:"image_type"`
	SortOrder    int       `json:"sort_order"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CarSpecification は車両の仕様項目（例: "Engine: V8"）を表す。
// spec_category でグループ化され、カテゴリ内では sort_order 順に並ぶ。
type CarSpecification struct {
	ID             int64      `json:"id,omitempty"`
	CarID          int64      `json:"car_id,omitempty"`
	SpecKey        string     `json:"spec_key"`
	SpecLabel      string     `json:"spec_label"`
	SpecValue      string     `json:"spec_value"`
	SpecUnit       string     `json:"spec_unit,omitempty"`
	SpecCategory   string     `json:"spec_category,omitempty"`
	FormattedValue string     `json:"formatted_value,omitempty"`
	SortOrder      int        `json:"sort_order"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

// SortedImages は画像をsort_order昇順で並べたコピーを返す。
// 同じsort_orderの画像は元の順序を保つ。
func (c *Car) SortedImages() []CarImage {
	images := make([]CarImage, len(c.Images))
	copy(images, c.Images)
	sort.SliceStable(images, func(i, j int) bool {
		return images[i].SortOrder < images[j].SortOrder
	})
	return images
}

// DisplayImage は代表画像を返す。
// is_primaryの画像があればそれを、なければsort_orderが最小の画像を返す。
// 画像がない場合はnilを返す。
func (c *Car) DisplayImage() *CarImage {
	if len(c.Images) == 0 {
		return nil
	}
	for i := range c.Images {
		if c.Images[i].IsPrimary {
			img := c.Images[i]
			return &img
		}
	}
	first := c.SortedImages()[0]
	return &first
}

// CarInput は車両作成・更新フォームの入力値。
// APIにはJSONとして送信される。
type CarInput struct {
	BrandID          int64              `json:"brand_id"`
	Name             string             `json:"name"`
	Description      string             `json:"description"`
	Status           CarStatus          `json:"status"`
	RegistrationYear string             `json:"registration_year"`
	Mileage          int                `json:"mileage"`
	BodyType         string             `json:"body_type"`
	Engine           string             `json:"engine"`
	FuelType         string             `json:"fuel_type"`
	Transmission     string             `json:"transmission"`
	PowerHP          int                `json:"power_hp"`
	PowerKW          int                `json:"power_kw"`
	VMax             int                `json:"v_max"`
	Acceleration     string             `json:"acceleration"`
	Price            float64            `json:"price"`
	Currency         string             `json:"currency"`
	ColorExterior    string             `json:"color_exterior"`
	ColorInterior    string             `json:"color_interior"`
	Doors            int                `json:"doors"`
	Seats            int                `json:"seats"`
	IsFeatured       bool               `json:"is_featured"`
	Specifications   []CarSpecification `json:"specifications,omitempty"`
}

// NewCarInput は新規作成フォームの初期値を返す。
func NewCarInput() CarInput {
	return CarInput{
		Status:   CarStatusAvailable,
		Currency: "EUR",
		Doors:    2,
		Seats:    2,
	}
}

// CarInputFromCar は既存車両から編集フォームの初期値を組み立てる。
// 未設定の項目は新規作成時と同じ既定値で埋める。
func CarInputFromCar(c *Car) CarInput {
	in := NewCarInput()
	in.BrandID = c.BrandID
	in.Name = c.Name
	in.Description = c.Description
	in.Status = c.Status
	in.RegistrationYear = c.RegistrationYear
	in.Mileage = intOr(c.Mileage, 0)
	in.BodyType = c.BodyType
	in.Engine = c.Engine
	in.FuelType = c.FuelType
	in.Transmission = c.Transmission
	in.PowerHP = intOr(c.PowerHP, 0)
	in.PowerKW = intOr(c.PowerKW, 0)
	in.VMax = intOr(c.VMax, 0)
	in.Acceleration = c.Acceleration
	if c.Price != nil {
		in.Price = *c.Price
	}
	if c.Currency != "" {
		in.Currency = c.Currency
	}
	in.ColorExterior = c.ColorExterior
	in.ColorInterior = c.ColorInterior
	in.Doors = intOr(c.Doors, 2)
	in.Seats = intOr(c.Seats, 2)
	in.IsFeatured = c.IsFeatured
	in.Specifications = c.Specifications
	return in
}

func intOr(p *int, def int) int {
	if p == nil || *p == 0 {
		return def
	}
	return *p
}

// Page はページネーション付き一覧APIのdata部を表す。
type Page[T any] struct {
	CurrentPage int `json:"current_page"`
	Data        []T `json:"data"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	From        int `json:"from"`
	To          int `json:"to"`
}
