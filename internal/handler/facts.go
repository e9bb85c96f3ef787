// Package handler exposes the HTTP handlers for the public API.  This file
// serves the static facts catalogue.
package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/facts-api/internal/model"
)

// FactLister is satisfied by *repository.FactRepo.
type FactLister interface {
    List() []model.Fact
}

// FactsResponse is the envelope returned by GET /api/facts/.  Count always
// equals len(Data).
type FactsResponse struct {
    Success bool         `json:"success"`
    Count   int          `json:"count"`
    Message string       `json:"message"`
    Data    []model.Fact `json:"data"`
}

// FactHandler serves the facts catalogue.
type FactHandler struct {
    Facts FactLister
}

func NewFactHandler(facts FactLister) *FactHandler {
    return &FactHandler{Facts: facts}
}

// List handles GET /api/facts/.  It has no failure path.
func (h *FactHandler) List(c echo.Context) error {
    data := h.Facts.List()
    return c.JSON(http.StatusOK, FactsResponse{
        Success: true,
        Count:   len(data),
        Message: "Facts retrieved successfully",
        Data:    data,
    })
}
