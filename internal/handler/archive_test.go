package handler

import (
	"net/http"
	"testing"

	"github.com/nodadogen/finvault/internal/archive"
)

func TestListObjectsWithoutArchive(t *testing.T) {
	h := &ArchiveHandler{}
	rec := getRequest(t, h.ListObjects, "/api/archive/objects")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetContentWithoutArchive(t *testing.T) {
	h := &ArchiveHandler{}
	rec := getRequest(t, h.GetContent, "/api/archive/content?key=exports/x.json.gz")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetContentRequiresKey(t *testing.T) {
	h := &ArchiveHandler{Archive: &archive.Client{}}
	rec := getRequest(t, h.GetContent, "/api/archive/content")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
