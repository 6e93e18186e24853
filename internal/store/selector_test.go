package store

import "testing"

// TestSelect проверяет выбор бэкенда по форме URL удалённого сервиса.
func TestSelect(t *testing.T) {
	cases := []struct {
		name      string
		remoteURL string
		want      string
	}{
		{"пустой URL", "", BackendLocal},
		{"пробелы", "   ", BackendLocal},
		{"не URL", "not a url", BackendLocal},
		{"без схемы", "example.supabase.co", BackendLocal},
		{"ftp-схема", "ftp://example.com", BackendLocal},
		{"без хоста", "https://", BackendLocal},
		{"корректный https", "https://example.supabase.co", BackendRemote},
		{"корректный http", "http://localhost:8000", BackendRemote},
		{"с trailing slash", "https://example.supabase.co/", BackendRemote},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Select(tc.remoteURL); got != tc.want {
				t.Errorf("Select(%q): ожидалось %q, получено %q", tc.remoteURL, tc.want, got)
			}
		})
	}
}
