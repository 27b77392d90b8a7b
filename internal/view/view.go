// Package view は各画面のデータ取得と入力検証を行い、画面に渡すビューモデルを組み立てる。
// HTTPには依存せず、APIクライアントとセッションストアをインターフェース越しに利用する。
package view

import (
	"context"
	"fmt"

	"github.com/hitoshi/showroom/internal/apiclient"
	"github.com/hitoshi/showroom/internal/model"
	"github.com/hitoshi/showroom/internal/session"
)

// CarAPI は車両APIの操作。*apiclient.CarService がこれを満たす。
type CarAPI interface {
	List(ctx context.Context, filters model.CarFilters) (*model.Page[model.Car], error)
	Featured(ctx context.Context) ([]model.Car, error)
	ListByBrand(ctx context.Context, brandID int64) ([]model.Car, error)
	Get(ctx context.Context, id int64) (*model.Car, error)
	Create(ctx context.Context, in model.CarInput) (*model.Car, error)
	Update(ctx context.Context, id int64, in model.CarInput) (*model.Car, error)
	Delete(ctx context.Context, id int64) error
	AddImages(ctx context.Context, carID int64, imageType model.ImageType, files []model.File) error
	DeleteImage(ctx context.Context, carID, imageID int64) error
	SetPrimaryImage(ctx context.Context, carID, imageID int64) error
}

// BrandAPI はブランドAPIの操作。*apiclient.BrandService がこれを満たす。
type BrandAPI interface {
	List(ctx context.Context) ([]model.Brand, error)
	Get(ctx context.Context, id int64) (*model.Brand, error)
	Create(ctx context.Context, in model.BrandInput) (*model.Brand, error)
	Update(ctx context.Context, id int64, in model.BrandInput) (*model.Brand, error)
	Delete(ctx context.Context, id int64) error
}

// ImageResolver は画像パスを表示用URLに解決する。*apiclient.Client がこれを満たす。
type ImageResolver interface {
	ImageURL(path string) string
}

// SessionStore はログイン画面が利用するセッション操作。*session.Store がこれを満たす。
type SessionStore interface {
	Login(ctx context.Context, req model.LoginRequest) (session.Session, error)
	Logout(ctx context.Context) string
}

// Failure はAPI呼び出しの失敗を、画面に表示するメッセージとともに表す。
// メッセージはサーバーが返したものを優先し、なければ画面ごとの既定文言になる。
type Failure struct {
	Message string
	Err     error
}

// Error はerrorインターフェースを実装する。
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Message, f.Err)
}

// Unwrap は原因のエラーを返す。
func (f *Failure) Unwrap() error {
	return f.Err
}

func fail(err error, fallback string) error {
	return &Failure{Message: apiclient.UserMessage(err, fallback), Err: err}
}

// CarCard は一覧やトップ画面に表示する車両。
type CarCard struct {
	model.Car
	DisplayImageURL string `json:"display_image_url"`
	StatusLabel     string `json:"status_label"`
	PriceLabel      string `json:"price_label"`
}

func newCarCard(c model.Car, images ImageResolver) CarCard {
	card := CarCard{
		Car:         c,
		StatusLabel: c.Status.Label(),
		PriceLabel:  FormatPrice(c.Price, c.Currency),
	}
	if img := c.DisplayImage(); img != nil {
		card.DisplayImageURL = images.ImageURL(img.ImagePath)
	} else {
		card.DisplayImageURL = images.ImageURL("")
	}
	return card
}

func newCarCards(cars []model.Car, images ImageResolver) []CarCard {
	cards := make([]CarCard, 0, len(cars))
	for _, c := range cars {
		cards = append(cards, newCarCard(c, images))
	}
	return cards
}

// BrandCard はブランド一覧に表示するブランド。
type BrandCard struct {
	model.Brand
	DisplayLogoURL string `json:"display_logo_url"`
}

func newBrandCards(brands []model.Brand) []BrandCard {
	cards := make([]BrandCard, 0, len(brands))
	for _, b := range brands {
		cards = append(cards, BrandCard{Brand: b, DisplayLogoURL: apiclient.LogoURL(&b)})
	}
	return cards
}
