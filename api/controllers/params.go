package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/forkline/forkline-backend/api/validators"
	"github.com/forkline/forkline-backend/pkg/pagination"
)

// pageParams reads limit and cursor query parameters for keyset listings.
func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}, nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	return validators.ParsePathID(chi.URLParam(r, name))
}
