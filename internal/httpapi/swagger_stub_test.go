//go:build !swagger

package httpapi

import (
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMountSwagger_NoOp(t *testing.T) {
	r := chi.NewRouter()
	MountSwagger(r)
	if len(r.Routes()) != 0 {
		t.Fatalf("expected no routes without the swagger tag")
	}
}
