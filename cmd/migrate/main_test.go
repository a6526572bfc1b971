package main

import (
	"testing"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{"default is up", nil, actionUp, false},
		{"up", []string{"up"}, actionUp, false},
		{"down", []string{"down"}, actionDown, false},
		{"status", []string{"status"}, actionStatus, false},
		{"unknown", []string{"sideways"}, "", true},
		{"too many", []string{"up", "down"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAction(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAction(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseAction(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
