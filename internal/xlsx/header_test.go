package xlsx

import "testing"

func TestSuggestHeaderRow(t *testing.T) {
	tests := []struct {
		name   string
		rows   [][]string
		want   int
		wantOK bool
	}{
		{
			name:   "empty preview",
			rows:   nil,
			want:   0,
			wantOK: false,
		},
		{
			name:   "blank cells only",
			rows:   [][]string{{"", " "}, {}},
			want:   0,
			wantOK: false,
		},
		{
			name: "header on first row",
			rows: [][]string{
				{"Name", "Age", "City"},
				{"Alice", "30", "New York"},
			},
			want:   0,
			wantOK: true,
		},
		{
			name: "title row above header",
			rows: [][]string{
				{"Q1 sales report"},
				{},
				{"Region", "Units", "Revenue"},
				{"North", "10", "1200.5"},
			},
			want:   2,
			wantOK: true,
		},
		{
			name: "numeric rows only fall back to widest",
			rows: [][]string{
				{"1"},
				{"1", "2", "3"},
				{"4", "5", "6"},
			},
			want:   1,
			wantOK: true,
		},
		{
			name: "text row without data below is not a header",
			rows: [][]string{
				{"1", "2"},
				{"total", "sum"},
			},
			want:   0,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SuggestHeaderRow(tt.rows)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("SuggestHeaderRow() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
