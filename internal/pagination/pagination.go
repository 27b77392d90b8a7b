// Package pagination は一覧画面のページ番号ボタンの並びを計算する。
package pagination

// Ellipsis は省略されたページ範囲を表す値。画面では「…」として表示する。
const Ellipsis = -1

// window は現在ページの前後に表示するページ数。
const window = 2

// PageRange は表示するページ番号の並びを返す。
// 先頭ページと最終ページは常に含み、現在ページの前後windowページを表示する。
// 表示範囲が先頭・最終ページと隣接しない側にはEllipsisを入れる。
// totalが1未満の場合は空の並びを返し、currentは1..totalに丸める。
func PageRange(current, total int) []int {
	if total < 1 {
		return []int{}
	}
	current = max(1, min(current, total))

	pages := []int{1}
	if current-window > 2 {
		pages = append(pages, Ellipsis)
	}
	for i := max(2, current-window); i <= min(total-1, current+window); i++ {
		pages = append(pages, i)
	}
	if current+window < total-1 {
		pages = append(pages, Ellipsis)
	}
	if total > 1 {
		pages = append(pages, total)
	}
	return pages
}

// Page は1つのページ番号ボタンを表す。
type Page struct {
	Number   int  `json:"number,omitempty"`
	Current  bool `json:"current,omitempty"`
	Ellipsis bool `json:"ellipsis,omitempty"`
}

// Controls はPageRangeの結果を画面表示用のボタン列に変換する。
func Controls(current, total int) []Page {
	numbers := PageRange(current, total)
	controls := make([]Page, 0, len(numbers))
	for _, n := range numbers {
		if n == Ellipsis {
			controls = append(controls, Page{Ellipsis: true})
			continue
		}
		controls = append(controls, Page{Number: n, Current: n == current})
	}
	return controls
}
