package paging

import (
	"reflect"
	"testing"
)

func TestMergePage(t *testing.T) {
	tests := []struct {
		name       string
		current    []string
		pageNum    int
		page       Page[string]
		wantItems  []string
		wantNoMore bool
		wantPage   int
	}{
		{
			name:      "page one replaces",
			current:   []string{"old-1", "old-2"},
			pageNum:   1,
			page:      Page[string]{Items: []string{"a", "b"}},
			wantItems: []string{"a", "b"},
			wantPage:  1,
		},
		{
			name:      "later page appends in order",
			current:   []string{"a", "b"},
			pageNum:   2,
			page:      Page[string]{Items: []string{"c", "d"}},
			wantItems: []string{"a", "b", "c", "d"},
			wantPage:  2,
		},
		{
			name:       "empty last page keeps items and sets no more data",
			current:    []string{"a"},
			pageNum:    3,
			page:       Page[string]{IsLastPage: true},
			wantItems:  []string{"a"},
			wantNoMore: true,
			wantPage:   3,
		},
		{
			name:       "empty first page clears the list",
			current:    []string{"a"},
			pageNum:    1,
			page:       Page[string]{IsLastPage: true},
			wantItems:  []string{},
			wantNoMore: true,
			wantPage:   1,
		},
		{
			name:      "duplicates are not removed",
			current:   []string{"a"},
			pageNum:   2,
			page:      Page[string]{Items: []string{"a"}},
			wantItems: []string{"a", "a"},
			wantPage:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergePage(tt.current, tt.pageNum, tt.page)
			if !reflect.DeepEqual(got.Items, tt.wantItems) {
				t.Errorf("Items = %v, want %v", got.Items, tt.wantItems)
			}
			if got.NoMoreData != tt.wantNoMore {
				t.Errorf("NoMoreData = %v, want %v", got.NoMoreData, tt.wantNoMore)
			}
			if got.LastLoadedPage != tt.wantPage {
				t.Errorf("LastLoadedPage = %d, want %d", got.LastLoadedPage, tt.wantPage)
			}
		})
	}
}

func TestMergePage_DoesNotAliasInputs(t *testing.T) {
	current := make([]string, 2, 10)
	copy(current, []string{"a", "b"})
	incoming := []string{"c"}

	appended := MergePage(current, 2, Page[string]{Items: incoming})
	appended.Items[0] = "changed"
	if current[0] != "a" {
		t.Error("append result shares the current list's backing array")
	}

	replaced := MergePage(current, 1, Page[string]{Items: incoming})
	replaced.Items[0] = "changed"
	if incoming[0] != "c" {
		t.Error("replace result shares the fetched page's backing array")
	}
}
