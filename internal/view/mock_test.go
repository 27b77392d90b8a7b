package view

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/hitoshi/showroom/internal/model"
	"github.com/hitoshi/showroom/internal/session"
)

// --- モック ---

var errNotImplemented = errors.New("not implemented")

type mockCarAPI struct {
	listFn            func(ctx context.Context, filters model.CarFilters) (*model.Page[model.Car], error)
	featuredFn        func(ctx context.Context) ([]model.Car, error)
	listByBrandFn     func(ctx context.Context, brandID int64) ([]model.Car, error)
	getFn             func(ctx context.Context, id int64) (*model.Car, error)
	createFn          func(ctx context.Context, in model.CarInput) (*model.Car, error)
	updateFn          func(ctx context.Context, id int64, in model.CarInput) (*model.Car, error)
	deleteFn          func(ctx context.Context, id int64) error
	addImagesFn       func(ctx context.Context, carID int64, imageType model.ImageType, files []model.File) error
	deleteImageFn     func(ctx context.Context, carID, imageID int64) error
	setPrimaryImageFn func(ctx context.Context, carID, imageID int64) error
}

func (m *mockCarAPI) List(ctx context.Context, filters model.CarFilters) (*model.Page[model.Car], error) {
	if m.listFn == nil {
		return nil, errNotImplemented
	}
	return m.listFn(ctx, filters)
}
func (m *mockCarAPI) Featured(ctx context.Context) ([]model.Car, error) {
	if m.featuredFn == nil {
		return nil, errNotImplemented
	}
	return m.featuredFn(ctx)
}
func (m *mockCarAPI) ListByBrand(ctx context.Context, brandID int64) ([]model.Car, error) {
	if m.listByBrandFn == nil {
		return nil, errNotImplemented
	}
	return m.listByBrandFn(ctx, brandID)
}
func (m *mockCarAPI) Get(ctx context.Context, id int64) (*model.Car, error) {
	if m.getFn == nil {
		return nil, errNotImplemented
	}
	return m.getFn(ctx, id)
}
func (m *mockCarAPI) Create(ctx context.Context, in model.CarInput) (*model.Car, error) {
	if m.createFn == nil {
		return nil, errNotImplemented
	}
	return m.createFn(ctx, in)
}
func (m *mockCarAPI) Update(ctx context.Context, id int64, in model.CarInput) (*model.Car, error) {
	if m.updateFn == nil {
		return nil, errNotImplemented
	}
	return m.updateFn(ctx, id, in)
}
func (m *mockCarAPI) Delete(ctx context.Context, id int64) error {
	if m.deleteFn == nil {
		return errNotImplemented
	}
	return m.deleteFn(ctx, id)
}
func (m *mockCarAPI) AddImages(ctx context.Context, carID int64, imageType model.ImageType, files []model.File) error {
	if m.addImagesFn == nil {
		return errNotImplemented
	}
	return m.addImagesFn(ctx, carID, imageType, files)
}
func (m *mockCarAPI) DeleteImage(ctx context.Context, carID, imageID int64) error {
	if m.deleteImageFn == nil {
		return errNotImplemented
	}
	return m.deleteImageFn(ctx, carID, imageID)
}
func (m *mockCarAPI) SetPrimaryImage(ctx context.Context, carID, imageID int64) error {
	if m.setPrimaryImageFn == nil {
		return errNotImplemented
	}
	return m.setPrimaryImageFn(ctx, carID, imageID)
}

type mockBrandAPI struct {
	listFn   func(ctx context.Context) ([]model.Brand, error)
	getFn    func(ctx context.Context, id int64) (*model.Brand, error)
	createFn func(ctx context.Context, in model.BrandInput) (*model.Brand, error)
	updateFn func(ctx context.Context, id int64, in model.BrandInput) (*model.Brand, error)
	deleteFn func(ctx context.Context, id int64) error
}

func (m *mockBrandAPI) List(ctx context.Context) ([]model.Brand, error) {
	if m.listFn == nil {
		return nil, errNotImplemented
	}
	return m.listFn(ctx)
}
func (m *mockBrandAPI) Get(ctx context.Context, id int64) (*model.Brand, error) {
	if m.getFn == nil {
		return nil, errNotImplemented
	}
	return m.getFn(ctx, id)
}
func (m *mockBrandAPI) Create(ctx context.Context, in model.BrandInput) (*model.Brand, error) {
	if m.createFn == nil {
		return nil, errNotImplemented
	}
	return m.createFn(ctx, in)
}
func (m *mockBrandAPI) Update(ctx context.Context, id int64, in model.BrandInput) (*model.Brand, error) {
	if m.updateFn == nil {
		return nil, errNotImplemented
	}
	return m.updateFn(ctx, id, in)
}
func (m *mockBrandAPI) Delete(ctx context.Context, id int64) error {
	if m.deleteFn == nil {
		return errNotImplemented
	}
	return m.deleteFn(ctx, id)
}

// stubImages は画像パスに固定のベースURLを付ける。
type stubImages struct{}

func (stubImages) ImageURL(path string) string {
	if path == "" {
		return "placeholder"
	}
	return "https://img.example.com/" + path
}

type mockSessionStore struct {
	loginFn     func(ctx context.Context, req model.LoginRequest) (session.Session, error)
	logoutCalls int
}

func (m *mockSessionStore) Login(ctx context.Context, req model.LoginRequest) (session.Session, error) {
	return m.loginFn(ctx, req)
}
func (m *mockSessionStore) Logout(ctx context.Context) string {
	m.logoutCalls++
	return session.LandingPath
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptrFloat(f float64) *float64 { return &f }
