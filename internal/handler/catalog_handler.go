package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/showroom/internal/model"
	"github.com/hitoshi/showroom/internal/view"
)

// CatalogService は公開画面のハンドラーが必要とする操作。*view.Catalog がこれを満たす。
type CatalogService interface {
	Home(ctx context.Context) (*view.HomePage, error)
	Cars(ctx context.Context, filters model.CarFilters) (*view.CarsPage, error)
	CarDetail(ctx context.Context, id int64) (*view.CarDetailPage, error)
	Models(ctx context.Context) (*view.ModelsPage, error)
	BrandCars(ctx context.Context, brandID int64) ([]view.CarCard, error)
}

// CatalogHandler は公開画面（トップ・車両一覧・詳細・ブランド）のHTTPハンドラー。
type CatalogHandler struct {
	service CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		logger:  logger,
	}
}

// Home はトップ画面のデータを返す。
// GET /api/home
func (h *CatalogHandler) Home(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Home(r.Context())
	if err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListCars はフィルタ付きの車両一覧を返す。
// GET /api/cars?page=&per_page=&sort_by=&sort_order=&brand_id=&status=&is_featured=&min_price=&max_price=&search=
func (h *CatalogHandler) ListCars(w http.ResponseWriter, r *http.Request) {
	filters, err := model.ParseCarFilters(r.URL.Query())
	if err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}

	page, err := h.service.Cars(r.Context(), filters)
	if err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetCar は車両詳細を返す。
// GET /api/cars/{id}
func (h *CatalogHandler) GetCar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	page, err := h.service.CarDetail(r.Context(), id)
	if err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListBrands は有効なブランドの一覧を返す。
// GET /api/brands
func (h *CatalogHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Models(r.Context())
	if err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ListBrandCars はブランドに属する車両の一覧を返す。
// GET /api/brands/{id}/cars
func (h *CatalogHandler) ListBrandCars(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	cars, err := h.service.BrandCars(r.Context(), id)
	if err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cars": cars})
}

// pathID はURLパラメータを正の整数IDとして読み取る。不正な場合は400を書き込む。
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		writeValidationError(w, "invalid "+name+": "+raw)
		return 0, false
	}
	return id, true
}
