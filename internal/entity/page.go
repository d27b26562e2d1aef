package entity

type pageKind int

const (
	pageAbsolute pageKind = iota
	pageFirst
	pageLast
	pageNext
	pagePrev
)

// PageMove describes a pagination request. Build one with ToPage, FirstPage,
// LastPage, NextPage or PrevPage.
type PageMove struct {
	kind pageKind
	page int
	wrap bool
}

// ToPage jumps to page n, clamped to the pages that exist.
func ToPage(n int) PageMove { return PageMove{kind: pageAbsolute, page: n} }

// FirstPage jumps to page 0.
func FirstPage() PageMove { return PageMove{kind: pageFirst} }

// LastPage jumps to len(IDs)/PageSize.
func LastPage() PageMove { return PageMove{kind: pageLast} }

// NextPage moves forward one page. With wrap, moving past the last page
// lands on page 0; otherwise the index is clamped.
func NextPage(wrap bool) PageMove { return PageMove{kind: pageNext, wrap: wrap} }

// PrevPage moves back one page. With wrap, moving before page 0 lands on the
// last page; otherwise the index is clamped.
func PrevPage(wrap bool) PageMove { return PageMove{kind: pagePrev, wrap: wrap} }

// String describes the move for logs.
func (m PageMove) String() string {
	switch m.kind {
	case pageFirst:
		return "first"
	case pageLast:
		return "last"
	case pageNext:
		if m.wrap {
			return "next(wrap)"
		}
		return "next"
	case pagePrev:
		if m.wrap {
			return "prev(wrap)"
		}
		return "prev"
	default:
		return "page"
	}
}

// resolve computes the page index the move lands on.
func (m PageMove) resolve(current, maxIndex int) int {
	switch m.kind {
	case pageFirst:
		return 0
	case pageLast:
		return maxIndex
	case pageNext:
		return WrapOrClamp(m.wrap, current+1, 0, maxIndex)
	case pagePrev:
		return WrapOrClamp(m.wrap, current-1, 0, maxIndex)
	default:
		return clamp(m.page, 0, maxIndex)
	}
}

// WrapOrClamp limits value to [lo, hi]. Without wrap it clamps; with wrap a
// value below lo becomes hi and a value above hi becomes lo.
func WrapOrClamp(wrap bool, value, lo, hi int) int {
	switch {
	case !wrap:
		return clamp(value, lo, hi)
	case value < lo:
		return hi
	case value > hi:
		return lo
	default:
		return value
	}
}

func clamp(value, lo, hi int) int {
	return min(hi, max(lo, value))
}
