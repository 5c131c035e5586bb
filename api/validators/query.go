package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/warehouselabs/fulfillment-backend/pkg/errors"
)

// ParseQueryInt reads an integer query parameter with a default and bounds.
func ParseQueryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s must be an integer", name))
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s must be between %d and %d", name, min, max))
	}
	return value, nil
}

// ParseUUIDParam reads a UUID path parameter from the chi route context.
func ParseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("%s must be a valid uuid", name))
	}
	return id, nil
}
