package view

import (
	"context"
	"log/slog"

	"github.com/hitoshi/showroom/internal/apiclient"
	"github.com/hitoshi/showroom/internal/model"
	"github.com/hitoshi/showroom/internal/pagination"
	"github.com/hitoshi/showroom/internal/security"
)

// metaDescriptionLength はメタディスクリプションとして使う抜粋の最大文字数。
const metaDescriptionLength = 160

// Catalog は公開画面（トップ・車両一覧・車両詳細・ブランド一覧）のビューモデルを組み立てる。
type Catalog struct {
	cars      CarAPI
	brands    BrandAPI
	images    ImageResolver
	sanitizer security.DescriptionSanitizer
	logger    *slog.Logger
}

// NewCatalog はCatalogの新しいインスタンスを生成する。
func NewCatalog(cars CarAPI, brands BrandAPI, images ImageResolver, sanitizer security.DescriptionSanitizer, logger *slog.Logger) *Catalog {
	return &Catalog{
		cars:      cars,
		brands:    brands,
		images:    images,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// HomePage はトップ画面。
type HomePage struct {
	FeaturedCars []CarCard   `json:"featured_cars"`
	Brands       []BrandCard `json:"brands"`
}

// Home は注目車両とブランド一覧を取得する。
// ブランドの取得に失敗しても注目車両だけで画面を表示する。
func (c *Catalog) Home(ctx context.Context) (*HomePage, error) {
	featured, err := c.cars.Featured(ctx)
	if err != nil {
		return nil, fail(err, "Failed to load featured cars")
	}

	page := &HomePage{
		FeaturedCars: newCarCards(featured, c.images),
		Brands:       []BrandCard{},
	}

	brands, err := c.brands.List(ctx)
	if err != nil {
		c.logger.Warn("failed to load brands for home", slog.String("error", err.Error()))
		return page, nil
	}
	page.Brands = newBrandCards(brands)
	return page, nil
}

// CarsPage は車両一覧画面。
type CarsPage struct {
	Cars        []CarCard         `json:"cars"`
	CurrentPage int               `json:"current_page"`
	TotalPages  int               `json:"total_pages"`
	Total       int               `json:"total"`
	Pages       []pagination.Page `json:"pages"`
	Filters     map[string]string `json:"filters"`
}

// Cars はフィルタ条件で車両一覧を取得し、ページ番号ボタンの並びを付けて返す。
func (c *Catalog) Cars(ctx context.Context, filters model.CarFilters) (*CarsPage, error) {
	result, err := c.cars.List(ctx, filters)
	if err != nil {
		return nil, fail(err, "Failed to load cars")
	}

	totalPages := max(result.LastPage, 1)
	current := max(result.CurrentPage, 1)

	applied := make(map[string]string)
	for k, v := range filters.Values() {
		applied[k] = v[0]
	}

	return &CarsPage{
		Cars:        newCarCards(result.Data, c.images),
		CurrentPage: current,
		TotalPages:  totalPages,
		Total:       result.Total,
		Pages:       pagination.Controls(current, totalPages),
		Filters:     applied,
	}, nil
}

// CarDetailPage は車両詳細画面。
type CarDetailPage struct {
	Car             model.Car   `json:"car"`
	SelectedImage   *ImageView  `json:"selected_image"`
	Images          []ImageView `json:"images"`
	StatusLabel     string      `json:"status_label"`
	PriceLabel      string      `json:"price_label"`
	DescriptionHTML string      `json:"description_html"`
	MetaTitle       string      `json:"meta_title"`
	MetaDescription string      `json:"meta_description"`
	SpecGroups      []SpecGroup `json:"spec_groups"`
	Brand           *BrandCard  `json:"brand,omitempty"`
}

// ImageView は表示用URLを解決済みの車両画像。
type ImageView struct {
	model.CarImage
	URL string `json:"url"`
}

// SelectedIndex は選択画像がImagesの何番目かを返す。見つからなければ0。
func (p *CarDetailPage) SelectedIndex() int {
	if p.SelectedImage == nil {
		return 0
	}
	for i, img := range p.Images {
		if img.ID == p.SelectedImage.ID {
			return i
		}
	}
	return 0
}

// CarDetail は車両を1件取得し、詳細画面のビューモデルを組み立てる。
// 選択画像は代表画像、説明文はサニタイズ済みのHTMLになる。
func (c *Catalog) CarDetail(ctx context.Context, id int64) (*CarDetailPage, error) {
	car, err := c.cars.Get(ctx, id)
	if err != nil {
		return nil, fail(err, "Failed to load car")
	}

	page := &CarDetailPage{
		Car:             *car,
		Images:          make([]ImageView, 0, len(car.Images)),
		StatusLabel:     car.Status.Label(),
		PriceLabel:      FormatPrice(car.Price, car.Currency),
		DescriptionHTML: c.sanitizer.Sanitize(car.Description),
		MetaTitle:       car.MetaTitle,
		MetaDescription: car.MetaDescription,
		SpecGroups:      GroupSpecifications(car.Specifications),
	}
	for _, img := range car.SortedImages() {
		page.Images = append(page.Images, ImageView{CarImage: img, URL: c.images.ImageURL(img.ImagePath)})
	}
	if img := car.DisplayImage(); img != nil {
		page.SelectedImage = &ImageView{CarImage: *img, URL: c.images.ImageURL(img.ImagePath)}
	}
	if page.MetaTitle == "" {
		page.MetaTitle = car.Name
		if car.Brand != nil && car.Brand.Name != "" {
			page.MetaTitle = car.Brand.Name + " " + car.Name
		}
	}
	if page.MetaDescription == "" {
		page.MetaDescription = security.Excerpt(car.Description, metaDescriptionLength)
	}
	if car.Brand != nil {
		page.Brand = &BrandCard{Brand: *car.Brand, DisplayLogoURL: apiclient.LogoURL(car.Brand)}
	}
	return page, nil
}

// ModelsPage はブランド一覧画面。
type ModelsPage struct {
	Brands []BrandCard `json:"brands"`
}

// Models は有効なブランドだけを取得する。
func (c *Catalog) Models(ctx context.Context) (*ModelsPage, error) {
	brands, err := c.brands.List(ctx)
	if err != nil {
		return nil, fail(err, "Failed to load brands")
	}

	active := make([]model.Brand, 0, len(brands))
	for _, b := range brands {
		if b.IsActive {
			active = append(active, b)
		}
	}
	return &ModelsPage{Brands: newBrandCards(active)}, nil
}

// BrandCars はブランドに属する車両の一覧を取得する。
func (c *Catalog) BrandCars(ctx context.Context, brandID int64) ([]CarCard, error) {
	cars, err := c.cars.ListByBrand(ctx, brandID)
	if err != nil {
		return nil, fail(err, "Failed to load cars")
	}
	return newCarCards(cars, c.images), nil
}
