package storage

import (
	"context"
	"testing"
)

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver("https://cdn.quickmed.test/uploads/")
	got, err := r.ReadURL(context.Background(), "/prescriptions/12/scan 1.jpg")
	if err != nil {
		t.Fatalf("read url: %v", err)
	}
	if got != "https://cdn.quickmed.test/uploads/prescriptions/12/scan%201.jpg" {
		t.Fatalf("unexpected url %q", got)
	}

	abs, err := r.ReadURL(context.Background(), "https://elsewhere.test/a.png")
	if err != nil || abs != "https://elsewhere.test/a.png" {
		t.Fatalf("absolute urls should pass through, got %q %v", abs, err)
	}
}

func TestCleanKeyRejectsTraversal(t *testing.T) {
	if _, err := CleanKey("../etc/passwd"); err == nil {
		t.Fatal("expected traversal error")
	}
	if _, err := CleanKey("   "); err == nil {
		t.Fatal("expected empty key error")
	}
}

func TestResolveOptional(t *testing.T) {
	r := NewStaticResolver("/uploads")
	if got := ResolveOptional(context.Background(), r, nil); got != nil {
		t.Fatalf("expected nil, got %v", *got)
	}
	key := "medicines/1.png"
	got := ResolveOptional(context.Background(), r, &key)
	if got == nil || *got != "/uploads/medicines/1.png" {
		t.Fatalf("unexpected resolved value %v", got)
	}
	bad := "../x"
	if got := ResolveOptional(context.Background(), r, &bad); got == nil || *got != bad {
		t.Fatalf("expected raw key fallback, got %v", got)
	}
}
