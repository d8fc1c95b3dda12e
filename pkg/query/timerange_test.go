package query

import "testing"

func TestValidTimeToken(t *testing.T) {
	valid := []string{
		"now", "now-1s", "now-15m", "now-1h", "now-7d", "now-2w",
		"2024-01-02T15:04:05Z", "2024-01-02T15:04:05+09:00",
		"1700000000", "1700000000000000",
	}
	for _, tok := range valid {
		if !ValidTimeToken(tok) {
			t.Errorf("ValidTimeToken(%q) = false, want true", tok)
		}
	}

	invalid := []string{
		"", "now-", "now-0h", "now-1x", "now+1h", "yesterday",
		"1 OR 1=1", "now-1h' OR '1'='1", "123", "-1700000000",
		"2024-01-02", "DROP TABLE logs",
	}
	for _, tok := range invalid {
		if ValidTimeToken(tok) {
			t.Errorf("ValidTimeToken(%q) = true, want false", tok)
		}
	}
}

func TestTimeRangeFilter(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		want    string
		wantErr bool
	}{
		{
			name: "both empty",
			want: "",
		},
		{
			name:  "both bounds",
			start: "now-1h",
			end:   "now",
			want:  "_timestamp >= 'now-1h' AND _timestamp <= 'now'",
		},
		{
			name:  "start only",
			start: "now-30m",
			want:  "_timestamp >= 'now-30m'",
		},
		{
			name: "end only",
			end:  "2024-06-01T00:00:00Z",
			want: "_timestamp <= '2024-06-01T00:00:00Z'",
		},
		{
			name:    "injected start",
			start:   "now-1h' OR 1=1 --",
			wantErr: true,
		},
		{
			name:    "injected end",
			start:   "now-1h",
			end:     "now'; DELETE FROM logs",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TimeRangeFilter(tt.start, tt.end)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("TimeRangeFilter(%q, %q) = %q, want %q", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestTimeRangeFilterDeterministic(t *testing.T) {
	a, _ := TimeRangeFilter("now-1h", "now")
	b, _ := TimeRangeFilter("now-1h", "now")
	if a != b {
		t.Errorf("identical inputs produced different output: %q vs %q", a, b)
	}
}
