package page

import "testing"

func TestPageMathEmpty(t *testing.T) {
	p := New[int](nil, 0, 1, 10)
	if p.TotalPages != 0 {
		t.Errorf("TotalPages = %d, want 0", p.TotalPages)
	}
	if p.HasNext || p.HasPrevious {
		t.Errorf("HasNext=%v HasPrevious=%v, want both false", p.HasNext, p.HasPrevious)
	}
}

func TestPageMathMiddlePage(t *testing.T) {
	p := New([]int{1, 2, 3}, 25, 2, 10)
	if p.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", p.TotalPages)
	}
	if !p.HasNext || !p.HasPrevious {
		t.Errorf("HasNext=%v HasPrevious=%v, want both true", p.HasNext, p.HasPrevious)
	}
	if p.NextPage == nil || *p.NextPage != 3 {
		t.Errorf("NextPage = %v, want 3", p.NextPage)
	}
	if p.PreviousPage == nil || *p.PreviousPage != 1 {
		t.Errorf("PreviousPage = %v, want 1", p.PreviousPage)
	}
}

func TestPageMathLastPage(t *testing.T) {
	p := New([]int{1}, 21, 3, 10)
	if p.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", p.TotalPages)
	}
	if p.HasNext {
		t.Error("HasNext = true on last page")
	}
	if p.NextPage != nil {
		t.Error("NextPage != nil on last page")
	}
}

func TestPageMathFirstPage(t *testing.T) {
	p := New([]int{1, 2}, 2, 1, 10)
	if p.HasPrevious {
		t.Error("HasPrevious = true on first page")
	}
	if p.PreviousPage != nil {
		t.Error("PreviousPage != nil on first page")
	}
}
