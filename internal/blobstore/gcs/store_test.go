package gcs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

func TestFolderPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "ledgr_data", want: "ledgr_data/"},
		{in: "ledgr_data/", want: "ledgr_data/"},
		{in: "/user-1/ledgr_data/", want: "user-1/ledgr_data/"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := folderPrefix(tt.in); got != tt.want {
				t.Errorf("folderPrefix(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFileInfo(t *testing.T) {
	created := time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	attrs := &storage.ObjectAttrs{
		Name:    "user-1/ledgr_data/backup_1709287200000.json",
		Created: created,
		Updated: created.Add(time.Minute),
	}

	info := fileInfo(attrs)
	if info.ID != attrs.Name {
		t.Errorf("expected id %s, got %s", attrs.Name, info.ID)
	}
	if info.Name != "backup_1709287200000.json" {
		t.Errorf("expected base name, got %s", info.Name)
	}
	if !info.ModifiedTime.Equal(attrs.Updated) {
		t.Errorf("expected modified time %v, got %v", attrs.Updated, info.ModifiedTime)
	}
}

func TestIsPreconditionFailed(t *testing.T) {
	if !isPreconditionFailed(fmt.Errorf("close: %w", &googleapi.Error{Code: http.StatusPreconditionFailed})) {
		t.Error("expected 412 to be detected")
	}
	if isPreconditionFailed(&googleapi.Error{Code: http.StatusNotFound}) {
		t.Error("404 is not a precondition failure")
	}
	if isPreconditionFailed(errors.New("boom")) {
		t.Error("plain errors are not precondition failures")
	}
}
