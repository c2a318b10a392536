package pagination

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		name      string
		page      string
		limit     string
		want      Params
		paginated bool
		wantErr   bool
	}{
		{name: "omitted", paginated: false},
		{name: "both", page: "2", limit: "10", want: Params{Page: 2, Limit: 10}, paginated: true},
		{name: "limit only", limit: "5", want: Params{Page: 1, Limit: 5}, paginated: true},
		{name: "page only serves full set", page: "3", paginated: false},
		{name: "page only still validated", page: "0", wantErr: true},
		{name: "zero page", page: "0", limit: "10", wantErr: true},
		{name: "limit too large", page: "1", limit: "101", wantErr: true},
		{name: "limit zero", limit: "0", wantErr: true},
		{name: "not a number", page: "two", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := Parse(tc.page, tc.limit)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tc.paginated {
				t.Fatalf("paginated=%v want %v", ok, tc.paginated)
			}
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestNewMeta(t *testing.T) {
	cases := []struct {
		name  string
		p     Params
		total int64
		want  Meta
	}{
		{
			name:  "middle page",
			p:     Params{Page: 2, Limit: 10},
			total: 25,
			want:  Meta{Page: 2, Limit: 10, Total: 25, TotalPages: 3, HasNextPage: true, HasPrevPage: true},
		},
		{
			name:  "exact last page",
			p:     Params{Page: 2, Limit: 10},
			total: 20,
			want:  Meta{Page: 2, Limit: 10, Total: 20, TotalPages: 2, HasNextPage: false, HasPrevPage: true},
		},
		{
			name:  "empty",
			p:     Params{Page: 1, Limit: 10},
			total: 0,
			want:  Meta{Page: 1, Limit: 10, Total: 0, TotalPages: 0},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewMeta(tc.p, tc.total); got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	if got := (Params{Page: 2, Limit: 10}).Offset(); got != 10 {
		t.Fatalf("expected offset 10, got %d", got)
	}
	if got := (Params{Page: 1, Limit: 10}).Offset(); got != 0 {
		t.Fatalf("expected offset 0, got %d", got)
	}
}
