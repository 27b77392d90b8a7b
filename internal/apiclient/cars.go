package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hitoshi/showroom/internal/model"
)

// CarService は車両APIの操作を提供する。
type CarService struct {
	client *Client
}

// List はフィルタ条件で車両一覧のページを取得する。
func (s *CarService) List(ctx context.Context, filters model.CarFilters) (*model.Page[model.Car], error) {
	var list flexibleList[model.Car]
	cl := call{resource: "cars", operation: "list", method: http.MethodGet, path: "/cars", query: filters.Values()}
	if err := s.client.do(ctx, cl, &list); err != nil {
		return nil, err
	}
	if list.Page != nil {
		return list.Page, nil
	}
	// 配列で返された場合は1ページとして扱う
	return &model.Page[model.Car]{
		CurrentPage: 1,
		Data:        list.Items,
		LastPage:    1,
		PerPage:     len(list.Items),
		Total:       len(list.Items),
		From:        min(1, len(list.Items)),
		To:          len(list.Items),
	}, nil
}

// Featured は注目車両の一覧を取得する。
func (s *CarService) Featured(ctx context.Context) ([]model.Car, error) {
	var list flexibleList[model.Car]
	cl := call{resource: "cars", operation: "featured", method: http.MethodGet, path: "/cars-featured"}
	if err := s.client.do(ctx, cl, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ListByBrand はブランドに属する車両の一覧を取得する。
func (s *CarService) ListByBrand(ctx context.Context, brandID int64) ([]model.Car, error) {
	var list flexibleList[model.Car]
	cl := call{resource: "cars", operation: "list_by_brand", method: http.MethodGet, path: fmt.Sprintf("/brands/%d/cars", brandID)}
	if err := s.client.do(ctx, cl, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// Get はIDで車両を1件取得する。
func (s *CarService) Get(ctx context.Context, id int64) (*model.Car, error) {
	var car model.Car
	cl := call{resource: "cars", operation: "get", method: http.MethodGet, path: carPath(id)}
	if err := s.client.do(ctx, cl, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// Create は車両を作成する。
func (s *CarService) Create(ctx context.Context, in model.CarInput) (*model.Car, error) {
	cl, err := jsonCall("cars", "create", http.MethodPost, "/cars", in)
	if err != nil {
		return nil, err
	}
	var car model.Car
	if err := s.client.do(ctx, cl, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// Update は車両を更新する。
func (s *CarService) Update(ctx context.Context, id int64, in model.CarInput) (*model.Car, error) {
	cl, err := jsonCall("cars", "update", http.MethodPut, carPath(id), in)
	if err != nil {
		return nil, err
	}
	var car model.Car
	if err := s.client.do(ctx, cl, &car); err != nil {
		return nil, err
	}
	return &car, nil
}

// Delete は車両を削除する。
func (s *CarService) Delete(ctx context.Context, id int64) error {
	cl := call{resource: "cars", operation: "delete", method: http.MethodDelete, path: carPath(id)}
	return s.client.do(ctx, cl, nil)
}

// AddImages は画像ファイルを1回のmultipartリクエストでまとめてアップロードする。
// ファイルは "images[]" として、種別は "image_type" として送信する。
func (s *CarService) AddImages(ctx context.Context, carID int64, imageType model.ImageType, files []model.File) error {
	if !imageType.Valid() {
		return model.NewInvalidImageTypeError(string(imageType))
	}
	body := newMultipartBody()
	for _, f := range files {
		body.file("images[]", f)
	}
	body.field("image_type", string(imageType))
	r, contentType, err := body.finish()
	if err != nil {
		return fmt.Errorf("multipartボディの作成に失敗しました: %w", err)
	}

	cl := call{
		resource:    "cars",
		operation:   "add_images",
		method:      http.MethodPost,
		path:        carPath(carID) + "/images",
		body:        r,
		contentType: contentType,
	}
	return s.client.do(ctx, cl, nil)
}

// DeleteImage は車両画像を削除する。
func (s *CarService) DeleteImage(ctx context.Context, carID, imageID int64) error {
	cl := call{resource: "cars", operation: "delete_image", method: http.MethodDelete, path: imagePath(carID, imageID)}
	return s.client.do(ctx, cl, nil)
}

// SetPrimaryImage は車両画像を代表画像に設定する。
func (s *CarService) SetPrimaryImage(ctx context.Context, carID, imageID int64) error {
	cl := call{resource: "cars", operation: "set_primary_image", method: http.MethodPut, path: imagePath(carID, imageID) + "/primary"}
	return s.client.do(ctx, cl, nil)
}

func carPath(id int64) string {
	return "/cars/" + strconv.FormatInt(id, 10)
}

func imagePath(carID, imageID int64) string {
	return carPath(carID) + "/images/" + strconv.FormatInt(imageID, 10)
}
