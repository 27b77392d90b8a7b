package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hitoshi/showroom/internal/model"
)

// BrandService はブランドAPIの操作を提供する。
type BrandService struct {
	client *Client
}

// List はブランド一覧を取得する。
func (s *BrandService) List(ctx context.Context) ([]model.Brand, error) {
	var list flexibleList[model.Brand]
	cl := call{resource: "brands", operation: "list", method: http.MethodGet, path: "/brands"}
	if err := s.client.do(ctx, cl, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// Get はIDでブランドを1件取得する。
func (s *BrandService) Get(ctx context.Context, id int64) (*model.Brand, error) {
	var brand model.Brand
	cl := call{resource: "brands", operation: "get", method: http.MethodGet, path: brandPath(id)}
	if err := s.client.do(ctx, cl, &brand); err != nil {
		return nil, err
	}
	return &brand, nil
}

// Create はブランドを作成する。ロゴは同じmultipartリクエストで送信する。
func (s *BrandService) Create(ctx context.Context, in model.BrandInput) (*model.Brand, error) {
	return s.send(ctx, "create", "/brands", in)
}

// Update はブランドを更新する。
// multipartを扱うためAPIはPOSTで更新を受け付ける。
func (s *BrandService) Update(ctx context.Context, id int64, in model.BrandInput) (*model.Brand, error) {
	return s.send(ctx, "update", brandPath(id), in)
}

// Delete はブランドを削除する。
func (s *BrandService) Delete(ctx context.Context, id int64) error {
	cl := call{resource: "brands", operation: "delete", method: http.MethodDelete, path: brandPath(id)}
	return s.client.do(ctx, cl, nil)
}

func (s *BrandService) send(ctx context.Context, operation, path string, in model.BrandInput) (*model.Brand, error) {
	body := newMultipartBody()
	body.field("name", in.Name)
	body.field("description", in.Description)
	if in.IsActive {
		body.field("is_active", "1")
	} else {
		body.field("is_active", "0")
	}
	if in.Logo != nil {
		body.file("logo", *in.Logo)
	}
	r, contentType, err := body.finish()
	if err != nil {
		return nil, fmt.Errorf("multipartボディの作成に失敗しました: %w", err)
	}

	cl := call{
		resource:    "brands",
		operation:   operation,
		method:      http.MethodPost,
		path:        path,
		body:        r,
		contentType: contentType,
	}
	var brand model.Brand
	if err := s.client.do(ctx, cl, &brand); err != nil {
		return nil, err
	}
	return &brand, nil
}

// LogoURL はブランドロゴの表示用URLを返す。ロゴがない場合はプレースホルダーを返す。
func LogoURL(b *model.Brand) string {
	if b == nil || b.LogoURL == "" {
		return PlaceholderLogo
	}
	return b.LogoURL
}

func brandPath(id int64) string {
	return "/brands/" + strconv.FormatInt(id, 10)
}
