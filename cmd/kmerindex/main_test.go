package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tamirms/kmerhash/index"
)

func TestBuildMinCountRange(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "reads.fa")
	if err := os.WriteFile(input, []byte(">r1\nACGTACGTAC\n>r2\nACGTACGTAC\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		minCount string
		want     uint32 // 0 means rejected
	}{
		{"one", "1", 1},
		{"two", "2", 2},
		{"max_uint32_plus_one", "4294967296", 0},
		{"wraps_to_one", "4294967297", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(dir, tt.name+".kmx")
			err := runBuild(context.Background(), []string{"-k", "5", "-o", out, "-min-count", tt.minCount, input})
			if tt.want == 0 {
				if err == nil || !strings.Contains(err.Error(), "-min-count") {
					t.Fatalf("runBuild error = %v, want -min-count range error", err)
				}
				if _, err := os.Stat(out); !os.IsNotExist(err) {
					t.Error("output file created for rejected -min-count")
				}
				return
			}
			if err != nil {
				t.Fatalf("runBuild: %v", err)
			}
			st, err := index.GetStats(out)
			if err != nil {
				t.Fatal(err)
			}
			if st.MinCount != tt.want {
				t.Errorf("MinCount = %d, want %d", st.MinCount, tt.want)
			}
		})
	}
}
