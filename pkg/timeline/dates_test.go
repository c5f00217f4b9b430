package timeline

import (
	"reflect"
	"testing"
)

func TestDays(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		want    []string
		wantErr bool
	}{
		{
			name: "forward range",
			from: "2019-01-01",
			to:   "2019-01-04",
			want: []string{"2019-01-01", "2019-01-02", "2019-01-03", "2019-01-04"},
		},
		{
			name: "same day",
			from: "2019-03-15",
			to:   "2019-03-15",
			want: []string{"2019-03-15"},
		},
		{
			name: "reversed range is normalized",
			from: "2019-01-04",
			to:   "2019-01-02",
			want: []string{"2019-01-02", "2019-01-03", "2019-01-04"},
		},
		{
			name: "crosses month boundary",
			from: "2018-12-30",
			to:   "2019-01-02",
			want: []string{"2018-12-30", "2018-12-31", "2019-01-01", "2019-01-02"},
		},
		{
			name:    "invalid from date",
			from:    "someday",
			to:      "2019-01-02",
			wantErr: true,
		},
		{
			name:    "invalid to date",
			from:    "2019-01-02",
			to:      "2019-13-45",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Days(tc.from, tc.to)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Days: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Days = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSlice(t *testing.T) {
	entries := []Entry{
		{Timestamp: "2019-01-01T00:00:00Z", Count: 10},
		{Timestamp: "2019-01-02T00:00:00Z", Count: 12},
		{Timestamp: "2019-01-03T00:00:00Z", Count: 9},
		{Timestamp: "bogus", Count: 0},
	}

	got := Slice(entries, []string{"2019-01-02", "2019-01-03"})
	want := []Entry{
		{Timestamp: "2019-01-02T00:00:00Z", Count: 12},
		{Timestamp: "2019-01-03T00:00:00Z", Count: 9},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Slice = %v, want %v", got, want)
	}
}

func TestSliceEmptyDates(t *testing.T) {
	entries := []Entry{{Timestamp: "2019-01-01T00:00:00Z", Count: 10}}
	if got := Slice(entries, nil); got != nil {
		t.Errorf("Slice with no dates = %v, want nil", got)
	}
}
