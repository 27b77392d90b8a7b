package view

import (
	"sort"

	"github.com/hitoshi/showroom/internal/model"
)

// DefaultSpecCategory はカテゴリ未設定の仕様項目をまとめるカテゴリ名。
const DefaultSpecCategory = "general"

// Direction は仕様項目の移動方向。
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// SpecGroup はカテゴリごとにまとめた仕様項目。
type SpecGroup struct {
	Category string                   `json:"category"`
	Specs    []model.CarSpecification `json:"specs"`
}

// GroupSpecifications は仕様項目をカテゴリごとにまとめる。
// カテゴリは最初に現れた順に並び、カテゴリ内はsort_orderの昇順（同値は元の順）に並ぶ。
func GroupSpecifications(specs []model.CarSpecification) []SpecGroup {
	groups := []SpecGroup{}
	index := map[string]int{}
	for _, s := range specs {
		cat := s.SpecCategory
		if cat == "" {
			cat = DefaultSpecCategory
		}
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, SpecGroup{Category: cat})
		}
		groups[i].Specs = append(groups[i].Specs, s)
	}
	for _, g := range groups {
		sort.SliceStable(g.Specs, func(a, b int) bool {
			return g.Specs[a].SortOrder < g.Specs[b].SortOrder
		})
	}
	return groups
}

// MoveUp はi番目の項目を1つ前の項目と入れ替え、sort_orderを0から振り直したコピーを返す。
// 先頭の項目や範囲外のiの場合は何もせずコピーを返す。
func MoveUp(specs []model.CarSpecification, i int) []model.CarSpecification {
	return swap(specs, i, i-1)
}

// MoveDown はi番目の項目を1つ後の項目と入れ替え、sort_orderを0から振り直したコピーを返す。
// 末尾の項目や範囲外のiの場合は何もせずコピーを返す。
func MoveDown(specs []model.CarSpecification, i int) []model.CarSpecification {
	return swap(specs, i, i+1)
}

func swap(specs []model.CarSpecification, i, j int) []model.CarSpecification {
	out := make([]model.CarSpecification, len(specs))
	copy(out, specs)
	if i < 0 || j < 0 || i >= len(out) || j >= len(out) {
		return out
	}
	out[i], out[j] = out[j], out[i]
	for k := range out {
		out[k].SortOrder = k
	}
	return out
}

// MoveInCategory は指定カテゴリのindex番目の項目を移動し、全カテゴリの項目を並べ直して返す。
// カテゴリ・位置・方向が不正な場合はINVALID_SPEC_MOVEエラーを返す。
// 端での移動は不正ではなく、変更なしとして扱う。
func MoveInCategory(specs []model.CarSpecification, category string, index int, dir Direction) ([]model.CarSpecification, error) {
	if category == "" {
		category = DefaultSpecCategory
	}

	groups := GroupSpecifications(specs)
	target := -1
	for i, g := range groups {
		if g.Category == category {
			target = i
			break
		}
	}
	if target < 0 {
		return nil, model.NewInvalidSpecMoveError("unknown category " + category)
	}
	if index < 0 || index >= len(groups[target].Specs) {
		return nil, model.NewInvalidSpecMoveError("index out of range")
	}

	switch dir {
	case DirectionUp:
		groups[target].Specs = MoveUp(groups[target].Specs, index)
	case DirectionDown:
		groups[target].Specs = MoveDown(groups[target].Specs, index)
	default:
		return nil, model.NewInvalidSpecMoveError("direction must be up or down")
	}

	out := make([]model.CarSpecification, 0, len(specs))
	for _, g := range groups {
		out = append(out, g.Specs...)
	}
	return out, nil
}
