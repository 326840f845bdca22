package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/cepcode/backend/internal/domain"
)

// The helpers below bind path and query parameters the same way generated
// oapi-codegen wrappers do. On failure they write a 400 and return false.

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidFormat, fmt.Sprintf("invalid %s: must be a UUID", name))
		return uuid.Nil, false
	}
	return id, true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	var v int
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidFormat, fmt.Sprintf("invalid %s: must be an integer", name))
		return 0, false
	}
	return v, true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string) (*int, bool) {
	var v *int
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidFormat, fmt.Sprintf("invalid %s: must be an integer", name))
		return nil, false
	}
	return v, true
}

func queryString(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	var v *string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidFormat, fmt.Sprintf("invalid %s", name))
		return "", false
	}
	if v == nil {
		return "", true
	}
	return *v, true
}

// pagination reads ?page= and ?limit= (defaults: page=1, limit=20, max=100).
func pagination(w http.ResponseWriter, r *http.Request) (domain.PaginationParams, bool) {
	page, ok := queryInt(w, r, "page")
	if !ok {
		return domain.PaginationParams{}, false
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return domain.PaginationParams{}, false
	}
	return domain.NewPaginationParams(page, limit), true
}
