package main

import (
	"testing"
)

func TestParseMemorySpec(t *testing.T) {
	tests := []struct {
		spec    string
		name    string
		min     uint32
		max     uint32
		hasMax  bool
		wantErr bool
	}{
		{spec: "memory:1", name: "memory", min: 1},
		{spec: "heap:2:16", name: "heap", min: 2, max: 16, hasMax: true},
		{spec: "m:0", name: "m", min: 0},
		{spec: "memory", wantErr: true},
		{spec: ":1", wantErr: true},
		{spec: "m:one", wantErr: true},
		{spec: "m:1:two", wantErr: true},
		{spec: "m:1:2:3", wantErr: true},
		{spec: "m:-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			md, err := parseMemorySpec(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseMemorySpec(%q) succeeded, want error", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseMemorySpec(%q) error: %v", tt.spec, err)
			}
			if md.Name != tt.name || md.Limits.Min != tt.min ||
				md.Limits.Max != tt.max || md.Limits.HasMax != tt.hasMax {
				t.Errorf("parseMemorySpec(%q) = %+v", tt.spec, md)
			}
		})
	}
}
