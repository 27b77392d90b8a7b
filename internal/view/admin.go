package view

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hitoshi/showroom/internal/model"
)

// 画面に表示する検証メッセージ
const (
	MsgRequiredFields     = "Please fill in all required fields"
	MsgLoginFields        = "Please fill in all fields"
	MsgNoImagesSelected   = "Please select at least one image"
	MsgImageUploadWarning = "Car saved but failed to upload images"
)

// Admin は管理画面（ダッシュボード・車両フォーム・画像管理・ブランドフォーム）の操作を提供する。
type Admin struct {
	cars   CarAPI
	brands BrandAPI
	images ImageResolver
	logger *slog.Logger
}

// NewAdmin はAdminの新しいインスタンスを生成する。
func NewAdmin(cars CarAPI, brands BrandAPI, images ImageResolver, logger *slog.Logger) *Admin {
	return &Admin{
		cars:   cars,
		brands: brands,
		images: images,
		logger: logger,
	}
}

// DashboardPage は管理画面のダッシュボード。
type DashboardPage struct {
	Cars           []CarCard     `json:"cars"`
	Brands         []model.Brand `json:"brands"`
	TotalCars      int           `json:"total_cars"`
	AvailableCount int           `json:"available_count"`
}

// Dashboard は車両とブランドの一覧、販売可能な台数を返す。
// ブランドの取得失敗は車両一覧の表示を妨げない。
func (a *Admin) Dashboard(ctx context.Context) (*DashboardPage, error) {
	result, err := a.cars.List(ctx, model.CarFilters{})
	if err != nil {
		return nil, fail(err, "Failed to load cars")
	}

	page := &DashboardPage{
		Cars:      newCarCards(result.Data, a.images),
		Brands:    []model.Brand{},
		TotalCars: len(result.Data),
	}
	if result.Total > page.TotalCars {
		page.TotalCars = result.Total
	}
	for _, c := range result.Data {
		if c.Status == model.CarStatusAvailable {
			page.AvailableCount++
		}
	}

	brands, err := a.brands.List(ctx)
	if err != nil {
		a.logger.Warn("failed to load brands for dashboard", slog.String("error", err.Error()))
		return page, nil
	}
	page.Brands = brands
	return page, nil
}

// CarForm は車両作成・更新フォームの送信内容。
// CarIDがnilの場合は新規作成になる。
type CarForm struct {
	CarID  *int64
	Input  model.CarInput
	Images []model.File
}

// CarFormResult はフォーム送信の結果。
// 車両の保存に成功し画像アップロードだけが失敗した場合はWarningが設定される。
type CarFormResult struct {
	Car     *model.Car `json:"car"`
	Warning string     `json:"warning,omitempty"`
}

// SubmitCar は車両を保存し、選択された画像があれば保存後にアップロードする。
// 必須項目（ブランド・名前・状態）が欠けている場合はAPIを呼び出さずに検証エラーを返す。
// 画像アップロードは車両の保存に成功した後にだけ行い、失敗しても車両の保存は取り消さない。
func (a *Admin) SubmitCar(ctx context.Context, form CarForm) (*CarFormResult, error) {
	in := form.Input
	if in.BrandID == 0 || strings.TrimSpace(in.Name) == "" || in.Status == "" {
		return nil, model.NewValidationError(MsgRequiredFields)
	}

	var (
		car *model.Car
		err error
	)
	if form.CarID != nil {
		car, err = a.cars.Update(ctx, *form.CarID, in)
		if err != nil {
			return nil, fail(err, "Failed to update car")
		}
		if car == nil || car.ID == 0 {
			car = &model.Car{ID: *form.CarID, BrandID: in.BrandID, Name: in.Name, Status: in.Status}
		}
	} else {
		car, err = a.cars.Create(ctx, in)
		if err != nil {
			return nil, fail(err, "Failed to create car")
		}
	}

	result := &CarFormResult{Car: car}
	if len(form.Images) == 0 {
		return result, nil
	}

	if err := a.cars.AddImages(ctx, car.ID, model.ImageTypeGallery, form.Images); err != nil {
		a.logger.Warn("car saved but image upload failed",
			slog.Int64("car_id", car.ID),
			slog.Int("image_count", len(form.Images)),
			slog.String("error", err.Error()),
		)
		result.Warning = MsgImageUploadWarning
	}
	return result, nil
}

// DeleteCar は車両を削除する。
func (a *Admin) DeleteCar(ctx context.Context, id int64) error {
	if err := a.cars.Delete(ctx, id); err != nil {
		return fail(err, "Failed to delete car")
	}
	return nil
}

// UploadImages は車両画像をアップロードする。種別が空の場合はgalleryとして扱う。
func (a *Admin) UploadImages(ctx context.Context, carID int64, imageType model.ImageType, files []model.File) error {
	if len(files) == 0 {
		return model.NewValidationError(MsgNoImagesSelected)
	}
	if imageType == "" {
		imageType = model.ImageTypeGallery
	}
	if !imageType.Valid() {
		return model.NewInvalidImageTypeError(string(imageType))
	}
	if err := a.cars.AddImages(ctx, carID, imageType, files); err != nil {
		return fail(err, "Failed to upload images")
	}
	return nil
}

// DeleteImage は車両画像を削除する。
func (a *Admin) DeleteImage(ctx context.Context, carID, imageID int64) error {
	if err := a.cars.DeleteImage(ctx, carID, imageID); err != nil {
		return fail(err, "Failed to delete image")
	}
	return nil
}

// SetPrimaryImage は車両画像を代表画像に設定する。
func (a *Admin) SetPrimaryImage(ctx context.Context, carID, imageID int64) error {
	if err := a.cars.SetPrimaryImage(ctx, carID, imageID); err != nil {
		return fail(err, "Failed to set primary image")
	}
	return nil
}

// SaveBrand はブランドを作成（idがnil）または更新する。
func (a *Admin) SaveBrand(ctx context.Context, id *int64, in model.BrandInput) (*model.Brand, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, model.NewValidationError(MsgRequiredFields)
	}

	if id == nil {
		brand, err := a.brands.Create(ctx, in)
		if err != nil {
			return nil, fail(err, "Failed to create brand")
		}
		return brand, nil
	}
	brand, err := a.brands.Update(ctx, *id, in)
	if err != nil {
		return nil, fail(err, "Failed to update brand")
	}
	return brand, nil
}

// DeleteBrand はブランドを削除する。
func (a *Admin) DeleteBrand(ctx context.Context, id int64) error {
	if err := a.brands.Delete(ctx, id); err != nil {
		return fail(err, "Failed to delete brand")
	}
	return nil
}

// LoginForm は管理画面ログインフォームの入力値。
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Submit はログインし、管理者でなければ直ちにログアウトしてエラーを返す。
// 入力が欠けている場合はAPIを呼び出さずに検証エラーを返す。
func (f LoginForm) Submit(ctx context.Context, store SessionStore) (*model.User, error) {
	if strings.TrimSpace(f.Email) == "" || f.Password == "" {
		return nil, model.NewValidationError(MsgLoginFields)
	}

	sess, err := store.Login(ctx, model.LoginRequest{Email: strings.TrimSpace(f.Email), Password: f.Password})
	if err != nil {
		return nil, fail(err, "Invalid credentials")
	}
	if !sess.IsAdmin() {
		store.Logout(ctx)
		return nil, model.NewAdminRequiredError()
	}
	return sess.User, nil
}
