package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackupNameHint(t *testing.T) {
	tests := []struct {
		name    string
		folders []string
		want    string
	}{
		{
			name:    "single folder",
			folders: []string{"/p/FG-2020-0003"},
			want:    "FG-2020-0003",
		},
		{
			name:    "two adjacent folders",
			folders: []string{"/p/FG-2020-0003", "/p/FG-2020-0004"},
			want:    "FG-2020-0003,0004",
		},
		{
			name:    "range of three",
			folders: []string{"/p/FG-2020-0007", "/p/FG-2020-0008", "/p/FG-2020-0009"},
			want:    "FG-2020-0007 => 0009",
		},
		{
			name:    "non-contiguous range",
			folders: []string{"/p/FG-2020-0004", "/p/FG-2020-0006", "/p/FG-2020-0007"},
			want:    "",
		},
		{
			name:    "unsorted input is sorted first",
			folders: []string{"/p/FG-2020-0009", "/p/FG-2020-0007", "/p/FG-2020-0008"},
			want:    "FG-2020-0007 => 0009",
		},
		{
			name:    "different name lengths",
			folders: []string{"/p/FG-2020-0003", "/p/FG-2020-00004"},
			want:    "",
		},
		{
			name:    "no numeric suffix",
			folders: []string{"/p/holidays"},
			want:    "",
		},
		{
			name:    "duplicate suffixes",
			folders: []string{"/p/FG-2020-0004", "/q/FG-2020-0004", "/p/FG-2020-0005"},
			want:    "",
		},
		{
			name:    "empty input",
			folders: nil,
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BackupNameHint(tt.folders))
		})
	}
}
