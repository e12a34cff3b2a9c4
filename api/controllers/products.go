package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bazaarly/bazaarly-backend/api/responses"
	"github.com/bazaarly/bazaarly-backend/api/validators"
	"github.com/bazaarly/bazaarly-backend/internal/catalog"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
)

// ProductCreate accepts a multipart listing: form fields plus image uploads.
func ProductCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		files, closeFiles, err := openFormImages(r, "images")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		defer closeFiles()

		body, err := productRequestFromForm(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := validators.Struct(&body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uploads := make([]catalog.ImageUpload, 0, len(files))
		for _, f := range files {
			uploads = append(uploads, catalog.ImageUpload{Body: f.file, ContentType: f.contentType})
		}

		product, err := svc.AddProduct(r.Context(), sellerID, body, uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]*catalog.ProductDTO{"product": product})
	}
}

func productRequestFromForm(r *http.Request) (catalog.AddProductRequest, error) {
	var req catalog.AddProductRequest

	price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("price")))
	if err != nil {
		return req, pkgerrors.New(pkgerrors.CodeValidation, "price must be a decimal number")
	}
	stock, err := formInt(r, "stock")
	if err != nil {
		return req, err
	}
	warranty, err := formInt(r, "warranty_months")
	if err != nil {
		return req, err
	}

	req = catalog.AddProductRequest{
		Label:          r.FormValue("label"),
		Color:          r.FormValue("color"),
		Size:           r.FormValue("size"),
		Material:       r.FormValue("material"),
		Category:       r.FormValue("category"),
		Brand:          r.FormValue("brand"),
		Price:          price,
		Stock:          stock,
		WarrantyMonths: warranty,
	}
	return req, nil
}

func formInt(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "form field must be numeric").
			WithDetails(map[string]string{field: "must be an integer"})
	}
	return value, nil
}

// ProductList searches listings by exact-match query parameters. At least one
// criterion is required.
func ProductList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := productFilterFromQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products, err := svc.ListProducts(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string][]catalog.ProductDTO{"products": products})
	}
}

func productFilterFromQuery(r *http.Request) (catalog.ListFilter, error) {
	var filter catalog.ListFilter
	query := r.URL.Query()

	strFilter := func(key string) *string {
		value := validators.SanitizeString(query.Get(key), 120)
		if value == "" {
			return nil
		}
		return &value
	}
	filter.Label = strFilter("label")
	filter.Category = strFilter("category")
	filter.Brand = strFilter("brand")

	if raw := strings.TrimSpace(query.Get("seller_id")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "seller_id must be a uuid")
		}
		filter.SellerID = &id
	}
	if raw := strings.TrimSpace(query.Get("price")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return filter, pkgerrors.New(pkgerrors.CodeValidation, "price must be a decimal number")
		}
		filter.Price = &price
	}
	return filter, nil
}

// ProductDetail returns one listing by id.
func ProductDetail(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]*catalog.ProductDTO{"product": product})
	}
}

// ProductUpdate applies a partial edit to a listing the caller owns.
func ProductUpdate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body catalog.UpdateProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), userID, actorRole(r), productID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]*catalog.ProductDTO{"product": product})
	}
}

// ProductDelete removes a listing the caller owns.
func ProductDelete(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteProduct(r.Context(), userID, actorRole(r), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
