package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/hitoshi/showroom/internal/middleware"
	"github.com/hitoshi/showroom/internal/model"
	"github.com/hitoshi/showroom/internal/view"
)

const (
	// maxUploadSize は画像アップロードを含むリクエストボディの上限。
	maxUploadSize = 50 << 20
	// maxUploadMemory はmultipartをメモリに保持する上限。超えた分は一時ファイルになる。
	maxUploadMemory = 32 << 20
)

// AdminService は管理画面のハンドラーが必要とする操作。*view.Admin がこれを満たす。
type AdminService interface {
	Dashboard(ctx context.Context) (*view.DashboardPage, error)
	SubmitCar(ctx context.Context, form view.CarForm) (*view.CarFormResult, error)
	DeleteCar(ctx context.Context, id int64) error
	UploadImages(ctx context.Context, carID int64, imageType model.ImageType, files []model.File) error
	DeleteImage(ctx context.Context, carID, imageID int64) error
	SetPrimaryImage(ctx context.Context, carID, imageID int64) error
	SaveBrand(ctx context.Context, id *int64, in model.BrandInput) (*model.Brand, error)
	DeleteBrand(ctx context.Context, id int64) error
}

// AdminHandler は管理画面のHTTPハンドラー。ルーターでは管理者ガードの内側に配置する。
type AdminHandler struct {
	service AdminService
	logger  *slog.Logger
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger,
	}
}

// Dashboard はダッシュボードのデータを返す。
// GET /api/admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.Dashboard(r.Context())
	if err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// CreateCar は車両を作成する。
// JSONのCarInput、またはmultipartの "car"（CarInputのJSON）と "images[]"（画像ファイル）を受け付ける。
// 画像のアップロードだけが失敗した場合は201とwarningを返す。
// POST /api/admin/cars
func (h *AdminHandler) CreateCar(w http.ResponseWriter, r *http.Request) {
	h.submitCar(w, r, nil, http.StatusCreated)
}

// UpdateCar は車両を更新する。受け付ける形式はCreateCarと同じ。
// PUT /api/admin/cars/{id}
func (h *AdminHandler) UpdateCar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.submitCar(w, r, &id, http.StatusOK)
}

func (h *AdminHandler) submitCar(w http.ResponseWriter, r *http.Request, id *int64, successStatus int) {
	form := view.CarForm{CarID: id}

	if isMultipart(r) {
		mf, ok := h.parseMultipart(w, r)
		if !ok {
			return
		}
		defer mf.RemoveAll()

		if err := json.Unmarshal([]byte(firstValue(mf, "car")), &form.Input); err != nil {
			handleError(w, r, h.logger, model.NewInvalidRequestError(), "")
			return
		}
		files, closeAll, err := openFiles(imageHeaders(mf))
		if err != nil {
			handleError(w, r, h.logger, err, "")
			return
		}
		defer closeAll()
		form.Images = files
	} else if !decodeJSON(w, r, &form.Input) {
		return
	}

	result, err := h.service.SubmitCar(r.Context(), form)
	if err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	writeJSON(w, successStatus, result)
}

// DeleteCar は車両を削除する。
// DELETE /api/admin/cars/{id}
func (h *AdminHandler) DeleteCar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteCar(r.Context(), id); err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadImages は車両画像をアップロードする。
// multipartの "images[]" と "image_type"（省略時はgallery）を受け付ける。
// POST /api/admin/cars/{id}/images
func (h *AdminHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !isMultipart(r) {
		writeValidationError(w, view.MsgNoImagesSelected)
		return
	}
	mf, ok := h.parseMultipart(w, r)
	if !ok {
		return
	}
	defer mf.RemoveAll()

	files, closeAll, err := openFiles(imageHeaders(mf))
	if err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	defer closeAll()

	imageType := model.ImageType(firstValue(mf, "image_type"))
	if err := h.service.UploadImages(r.Context(), id, imageType, files); err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteImage は車両画像を削除する。
// DELETE /api/admin/cars/{id}/images/{imageID}
func (h *AdminHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	carID, imageID, ok := carImageIDs(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteImage(r.Context(), carID, imageID); err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetPrimaryImage は車両画像を代表画像に設定する。
// PUT /api/admin/cars/{id}/images/{imageID}/primary
func (h *AdminHandler) SetPrimaryImage(w http.ResponseWriter, r *http.Request) {
	carID, imageID, ok := carImageIDs(w, r)
	if !ok {
		return
	}
	if err := h.service.SetPrimaryImage(r.Context(), carID, imageID); err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// moveSpecRequest は仕様項目の並べ替えリクエスト。
type moveSpecRequest struct {
	Specifications []model.CarSpecification `json:"specifications"`
	Category       string                   `json:"category"`
	Index          *int                     `json:"index"`
	Direction      view.Direction           `json:"direction"`
}

// MoveSpecification は編集中の仕様項目をカテゴリ内で1つ上下に移動した結果を返す。
// APIは呼び出さない。保存は車両の更新で行う。
// POST /api/admin/specifications/move
func (h *AdminHandler) MoveSpecification(w http.ResponseWriter, r *http.Request) {
	var req moveSpecRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Index == nil {
		handleError(w, r, h.logger, model.NewInvalidSpecMoveError("index is required"), "")
		return
	}

	specs, err := view.MoveInCategory(req.Specifications, req.Category, *req.Index, req.Direction)
	if err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"specifications": specs,
		"groups":         view.GroupSpecifications(specs),
	})
}

// CreateBrand はブランドを作成する。
// multipartまたはフォームの name, description, is_active, logo を受け付ける。
// POST /api/admin/brands
func (h *AdminHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	h.saveBrand(w, r, nil, http.StatusCreated)
}

// UpdateBrand はブランドを更新する。ロゴを含むためPOSTで受け付ける。
// POST /api/admin/brands/{id}
func (h *AdminHandler) UpdateBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.saveBrand(w, r, &id, http.StatusOK)
}

func (h *AdminHandler) saveBrand(w http.ResponseWriter, r *http.Request, id *int64, successStatus int) {
	var in model.BrandInput

	if isMultipart(r) {
		mf, ok := h.parseMultipart(w, r)
		if !ok {
			return
		}
		defer mf.RemoveAll()

		in = brandInputFromForm(firstValue(mf, "name"), firstValue(mf, "description"), firstValue(mf, "is_active"))
		if headers := mf.File["logo"]; len(headers) > 0 {
			files, closeAll, err := openFiles(headers[:1])
			if err != nil {
				handleError(w, r, h.logger, err, "")
				return
			}
			defer closeAll()
			in.Logo = &files[0]
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		if err := r.ParseForm(); err != nil {
			handleError(w, r, h.logger, model.NewInvalidRequestError(), "")
			return
		}
		in = brandInputFromForm(r.PostForm.Get("name"), r.PostForm.Get("description"), r.PostForm.Get("is_active"))
	}

	brand, err := h.service.SaveBrand(r.Context(), id, in)
	if err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	writeJSON(w, successStatus, brand)
}

// DeleteBrand はブランドを削除する。
// DELETE /api/admin/brands/{id}
func (h *AdminHandler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteBrand(r.Context(), id); err != nil {
		handleError(w, r, h.logger, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- multipart ---

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func (h *AdminHandler) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writePayloadTooLarge(w)
			return nil, false
		}
		handleError(w, r, h.logger, model.NewInvalidRequestError(), "")
		return nil, false
	}
	return r.MultipartForm, true
}

func firstValue(mf *multipart.Form, key string) string {
	if vs := mf.Value[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// imageHeaders は "images[]" と "images" の両方のフィールド名を受け付ける。
func imageHeaders(mf *multipart.Form) []*multipart.FileHeader {
	return append(append([]*multipart.FileHeader{}, mf.File["images[]"]...), mf.File["images"]...)
}

// openFiles はアップロードされたファイルを開く。返された関数ですべて閉じる。
func openFiles(headers []*multipart.FileHeader) ([]model.File, func(), error) {
	files := make([]model.File, 0, len(headers))
	closers := make([]io.Closer, 0, len(headers))
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, f)
		files = append(files, model.File{Name: fh.Filename, Content: f})
	}
	return files, closeAll, nil
}

func brandInputFromForm(name, description, active string) model.BrandInput {
	isActive := true
	if active != "" {
		isActive = active == "1" || active == "on" || strings.EqualFold(active, "true")
	}
	return model.BrandInput{
		Name:        strings.TrimSpace(name),
		Description: description,
		IsActive:    isActive,
	}
}

func carImageIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	carID, ok := pathID(w, r, "id")
	if !ok {
		return 0, 0, false
	}
	imageID, ok := pathID(w, r, "imageID")
	if !ok {
		return 0, 0, false
	}
	return carID, imageID, true
}

func writePayloadTooLarge(w http.ResponseWriter) {
	middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, &model.APIError{
		Code:     "PAYLOAD_TOO_LARGE",
		Message:  "アップロードするファイルが大きすぎます。",
		Category: "validation",
		Action:   "画像のサイズを小さくしてください。",
	})
}
