package utils

import "testing"

func TestSuggestedFilename(t *testing.T) {
	tests := []struct {
		name     string
		location string
		date     string
		want     string
	}{
		{
			name:     "ascii location",
			location: "Tokyo Tower",
			date:     "2025/01/15",
			want:     "tokyo_tower_2025-01-15.jpg",
		},
		{
			name:     "non-ascii runes become underscores",
			location: "東京都 港区",
			date:     "2024/12/25",
			want:     "_______2024-12-25.jpg",
		},
		{
			name:     "date unknown marker",
			location: "Paris",
			date:     DateUnknown,
			want:     "paris_date unknown.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SuggestedFilename(tt.location, tt.date); got != tt.want {
				t.Errorf("SuggestedFilename(%q, %q) = %q, want %q", tt.location, tt.date, got, tt.want)
			}
		})
	}
}
