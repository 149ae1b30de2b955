package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gildedlane/marketplace-backend/internal/catalog"
	"github.com/gildedlane/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/gildedlane/marketplace-backend/pkg/errors"
	"github.com/gildedlane/marketplace-backend/pkg/logger"
	"github.com/gildedlane/marketplace-backend/pkg/pagination"
)

type stubCatalog struct {
	products []models.Product
	filter   catalog.ProductFilter
	err      error
}

func (s *stubCatalog) GetProduct(_ context.Context, productID uuid.UUID) (*models.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.products {
		if s.products[i].ID == productID {
			return &s.products[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func (s *stubCatalog) ListProducts(_ context.Context, filter catalog.ProductFilter, _ pagination.Params) ([]models.Product, string, error) {
	s.filter = filter
	return s.products, "", s.err
}

func (s *stubCatalog) GetVendor(_ context.Context, _ uuid.UUID) (*models.Vendor, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
}

func controllerTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestProductListAppliesVendorFilter(t *testing.T) {
	t.Parallel()

	vendorID := uuid.New()
	svc := &stubCatalog{products: []models.Product{{ID: uuid.New(), Name: "Sapphire Ring"}}}
	handler := ProductList(svc, controllerTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?vendor_id="+vendorID.String()+"&category=rings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, vendorID, svc.filter.VendorID)
	assert.Equal(t, "rings", svc.filter.Category)

	var envelope struct {
		Data struct {
			Items []models.Product `json:"items"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Items, 1)
	assert.Equal(t, "Sapphire Ring", envelope.Data.Items[0].Name)
}

func TestProductListRejectsBadVendorFilter(t *testing.T) {
	t.Parallel()

	handler := ProductList(&stubCatalog{}, controllerTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?vendor_id=not-a-uuid", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductDetailReturnsNotFound(t *testing.T) {
	t.Parallel()

	handler := ProductDetail(&stubCatalog{}, controllerTestLogger())

	router := chi.NewRouter()
	router.Get("/api/v1/products/{productID}", handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductDetailRejectsMalformedID(t *testing.T) {
	t.Parallel()

	handler := ProductDetail(&stubCatalog{}, controllerTestLogger())

	router := chi.NewRouter()
	router.Get("/api/v1/products/{productID}", handler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/definitely-not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "productID", envelope.Error.Details["param"])
}
