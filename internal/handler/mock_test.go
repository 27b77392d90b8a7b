package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/showroom/internal/middleware"
	"github.com/hitoshi/showroom/internal/model"
	"github.com/hitoshi/showroom/internal/session"
	"github.com/hitoshi/showroom/internal/view"
)

var errNotImplemented = errors.New("not implemented")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- CatalogService モック ---

type mockCatalogService struct {
	homeFn      func(ctx context.Context) (*view.HomePage, error)
	carsFn      func(ctx context.Context, filters model.CarFilters) (*view.CarsPage, error)
	carDetailFn func(ctx context.Context, id int64) (*view.CarDetailPage, error)
	modelsFn    func(ctx context.Context) (*view.ModelsPage, error)
	brandCarsFn func(ctx context.Context, brandID int64) ([]view.CarCard, error)
}

func (m *mockCatalogService) Home(ctx context.Context) (*view.HomePage, error) {
	if m.homeFn == nil {
		return nil, errNotImplemented
	}
	return m.homeFn(ctx)
}

func (m *mockCatalogService) Cars(ctx context.Context, filters model.CarFilters) (*view.CarsPage, error) {
	if m.carsFn == nil {
		return nil, errNotImplemented
	}
	return m.carsFn(ctx, filters)
}

func (m *mockCatalogService) CarDetail(ctx context.Context, id int64) (*view.CarDetailPage, error) {
	if m.carDetailFn == nil {
		return nil, errNotImplemented
	}
	return m.carDetailFn(ctx, id)
}

func (m *mockCatalogService) Models(ctx context.Context) (*view.ModelsPage, error) {
	if m.modelsFn == nil {
		return nil, errNotImplemented
	}
	return m.modelsFn(ctx)
}

func (m *mockCatalogService) BrandCars(ctx context.Context, brandID int64) ([]view.CarCard, error) {
	if m.brandCarsFn == nil {
		return nil, errNotImplemented
	}
	return m.brandCarsFn(ctx, brandID)
}

// --- AdminService モック ---

type mockAdminService struct {
	dashboardFn       func(ctx context.Context) (*view.DashboardPage, error)
	submitCarFn       func(ctx context.Context, form view.CarForm) (*view.CarFormResult, error)
	deleteCarFn       func(ctx context.Context, id int64) error
	uploadImagesFn    func(ctx context.Context, carID int64, imageType model.ImageType, files []model.File) error
	deleteImageFn     func(ctx context.Context, carID, imageID int64) error
	setPrimaryImageFn func(ctx context.Context, carID, imageID int64) error
	saveBrandFn       func(ctx context.Context, id *int64, in model.BrandInput) (*model.Brand, error)
	deleteBrandFn     func(ctx context.Context, id int64) error
}

func (m *mockAdminService) Dashboard(ctx context.Context) (*view.DashboardPage, error) {
	if m.dashboardFn == nil {
		return nil, errNotImplemented
	}
	return m.dashboardFn(ctx)
}

func (m *mockAdminService) SubmitCar(ctx context.Context, form view.CarForm) (*view.CarFormResult, error) {
	if m.submitCarFn == nil {
		return nil, errNotImplemented
	}
	return m.submitCarFn(ctx, form)
}

func (m *mockAdminService) DeleteCar(ctx context.Context, id int64) error {
	if m.deleteCarFn == nil {
		return errNotImplemented
	}
	return m.deleteCarFn(ctx, id)
}

func (m *mockAdminService) UploadImages(ctx context.Context, carID int64, imageType model.ImageType, files []model.File) error {
	if m.uploadImagesFn == nil {
		return errNotImplemented
	}
	return m.uploadImagesFn(ctx, carID, imageType, files)
}

func (m *mockAdminService) DeleteImage(ctx context.Context, carID, imageID int64) error {
	if m.deleteImageFn == nil {
		return errNotImplemented
	}
	return m.deleteImageFn(ctx, carID, imageID)
}

func (m *mockAdminService) SetPrimaryImage(ctx context.Context, carID, imageID int64) error {
	if m.setPrimaryImageFn == nil {
		return errNotImplemented
	}
	return m.setPrimaryImageFn(ctx, carID, imageID)
}

func (m *mockAdminService) SaveBrand(ctx context.Context, id *int64, in model.BrandInput) (*model.Brand, error) {
	if m.saveBrandFn == nil {
		return nil, errNotImplemented
	}
	return m.saveBrandFn(ctx, id, in)
}

func (m *mockAdminService) DeleteBrand(ctx context.Context, id int64) error {
	if m.deleteBrandFn == nil {
		return errNotImplemented
	}
	return m.deleteBrandFn(ctx, id)
}

// --- session.AuthAPI モック ---

type mockAuthAPI struct {
	loginFn    func(ctx context.Context, req model.LoginRequest) (*model.AuthPayload, error)
	registerFn func(ctx context.Context, req model.RegisterRequest) (*model.AuthPayload, error)
	logoutFn   func(ctx context.Context) error
	meFn       func(ctx context.Context) (*model.User, error)
	refreshFn  func(ctx context.Context) (*model.AuthPayload, error)
}

func (m *mockAuthAPI) Login(ctx context.Context, req model.LoginRequest) (*model.AuthPayload, error) {
	if m.loginFn == nil {
		return nil, errNotImplemented
	}
	return m.loginFn(ctx, req)
}

func (m *mockAuthAPI) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthPayload, error) {
	if m.registerFn == nil {
		return nil, errNotImplemented
	}
	return m.registerFn(ctx, req)
}

func (m *mockAuthAPI) Logout(ctx context.Context) error {
	if m.logoutFn == nil {
		return nil
	}
	return m.logoutFn(ctx)
}

func (m *mockAuthAPI) Me(ctx context.Context) (*model.User, error) {
	if m.meFn == nil {
		return nil, errNotImplemented
	}
	return m.meFn(ctx)
}

func (m *mockAuthAPI) Refresh(ctx context.Context) (*model.AuthPayload, error) {
	if m.refreshFn == nil {
		return nil, errNotImplemented
	}
	return m.refreshFn(ctx)
}

// --- テスト用ヘルパー ---

// newTestStore はメモリバックエンドのストアを返す。userがnilでない場合はログイン済みにする。
func newTestStore(t *testing.T, api session.AuthAPI, user *model.User) *session.Store {
	t.Helper()
	storage := session.NewMemoryBackend().For("test-sid")
	if user != nil {
		raw, err := json.Marshal(user)
		if err != nil {
			t.Fatalf("marshal user: %v", err)
		}
		ctx := context.Background()
		if err := storage.Set(ctx, session.KeyToken, "opaque-token"); err != nil {
			t.Fatalf("set token: %v", err)
		}
		if err := storage.Set(ctx, session.KeyUser, string(raw)); err != nil {
			t.Fatalf("set user: %v", err)
		}
	}
	store := session.NewStore("test-sid", storage, api, discardLogger())
	store.Restore(context.Background())
	return store
}

func adminUser() *model.User {
	return &model.User{ID: 1, Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin}
}

func regularUser() *model.User {
	return &model.User{ID: 2, Name: "User", Email: "user@example.com", Role: model.RoleUser}
}

func withStore(req *http.Request, store *session.Store) *http.Request {
	return req.WithContext(middleware.ContextWithStore(req.Context(), store))
}

// decodeError はレスポンスボディを統一エラーフォーマットとして読み取る。
func decodeError(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body
}
