package model

import (
	"net/url"
	"strconv"
)

// SortOrder は並び順を表す。
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// CarFilters は車両一覧APIに送るクエリ条件。永続化はされない。
// ポインタ型のフィールドはnilで未指定、文字列フィールドは空文字で未指定を表す。
type CarFilters struct {
	Page       *int
	PerPage    *int
	SortBy     string
	SortOrder  SortOrder
	BrandID    *int64
	Status     string
	IsFeatured *bool
	MinPrice   *float64
	MaxPrice   *float64
	Search     string
}

// DefaultCarFilters は一覧画面の初期フィルタを返す。
// 作成日時の降順、1ページ12件、1ページ目。
func DefaultCarFilters() CarFilters {
	page, perPage := 1, 12
	return CarFilters{
		Page:      &page,
		PerPage:   &perPage,
		SortBy:    "created_at",
		SortOrder: SortDesc,
	}
}

// Values はフィルタをクエリパラメータに変換する。
// 値が設定されていない項目（nil・空文字）は含めない。
func (f CarFilters) Values() url.Values {
	v := url.Values{}
	setString := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}

	if f.Page != nil {
		v.Set("page", strconv.Itoa(*f.Page))
	}
	if f.PerPage != nil {
		v.Set("per_page", strconv.Itoa(*f.PerPage))
	}
	setString("sort_by", f.SortBy)
	setString("sort_order", string(f.SortOrder))
	if f.BrandID != nil {
		v.Set("brand_id", strconv.FormatInt(*f.BrandID, 10))
	}
	setString("status", f.Status)
	if f.IsFeatured != nil {
		v.Set("is_featured", strconv.FormatBool(*f.IsFeatured))
	}
	if f.MinPrice != nil {
		v.Set("min_price", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		v.Set("max_price", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	setString("search", f.Search)

	return v
}

// WithPage はページ番号だけを差し替えたコピーを返す。
func (f CarFilters) WithPage(page int) CarFilters {
	f.Page = &page
	return f
}

// ParseCarFilters は一覧画面のクエリパラメータからフィルタを組み立てる。
// 指定のない項目はDefaultCarFiltersの値を使う。
// ブランド一覧画面からの遷移で使われる "brand" も brand_id として受け付ける。
func ParseCarFilters(q url.Values) (CarFilters, error) {
	f := DefaultCarFilters()

	if s := q.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return f, NewInvalidFilterError("page", s)
		}
		f.Page = &n
	}
	if s := q.Get("per_page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return f, NewInvalidFilterError("per_page", s)
		}
		f.PerPage = &n
	}
	if s := q.Get("sort_by"); s != "" {
		f.SortBy = s
	}
	switch s := SortOrder(q.Get("sort_order")); s {
	case "":
	case SortAsc, SortDesc:
		f.SortOrder = s
	default:
		return f, NewInvalidFilterError("sort_order", string(s))
	}

	brand := q.Get("brand_id")
	if brand == "" {
		brand = q.Get("brand")
	}
	if brand != "" {
		id, err := strconv.ParseInt(brand, 10, 64)
		if err != nil {
			return f, NewInvalidFilterError("brand_id", brand)
		}
		f.BrandID = &id
	}

	f.Status = q.Get("status")
	if s := q.Get("is_featured"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return f, NewInvalidFilterError("is_featured", s)
		}
		f.IsFeatured = &b
	}
	for _, p := range []struct {
		key string
		dst **float64
	}{{"min_price", &f.MinPrice}, {"max_price", &f.MaxPrice}} {
		s := q.Get(p.key)
		if s == "" {
			continue
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return f, NewInvalidFilterError(p.key, s)
		}
		*p.dst = &n
	}
	f.Search = q.Get("search")

	return f, nil
}
