package main

import (
	"net/http/httptest"
	"testing"

	"github.com/cardvault/cardvault/collection"
	"github.com/cardvault/cardvault/engine/memstore"
)

func TestHandleHealthzReturnsOK(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/healthz", nil)

	handleHealthz(rec, req)

	if rec.Code != 200 {
		t.Errorf("handleHealthz() status = %d, want 200", rec.Code)
	}
}

func TestHandleReadyzReturnsOKWhenEngineResponds(t *testing.T) {
	col := collection.New(memstore.New())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/readyz", nil)

	handleReadyz(col)(rec, req)

	if rec.Code != 200 {
		t.Errorf("handleReadyz() status = %d, want 200", rec.Code)
	}
}
