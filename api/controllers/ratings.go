package controllers

import (
	"net/http"
	"strconv"

	"github.com/bazaarly/bazaarly-backend/api/responses"
	"github.com/bazaarly/bazaarly-backend/api/validators"
	"github.com/bazaarly/bazaarly-backend/internal/ratings"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
	"github.com/bazaarly/bazaarly-backend/pkg/logger"
)

// RatingCreate accepts a multipart review: stars and text as form fields plus
// at least one image upload.
func RatingCreate(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reviewerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := parseUUIDParam(r, "productId")
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

		stars, err := strconv.Atoi(r.FormValue("stars"))
		if err != nil {
			err := pkgerrors.New(pkgerrors.CodeValidation, "stars must be an integer")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body := ratings.AddRatingRequest{
			Stars:      stars,
			ReviewText: r.FormValue("review_text"),
		}
		if err := validators.Struct(&body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		uploads := make([]ratings.ImageUpload, 0, len(files))
		for _, f := range files {
			uploads = append(uploads, ratings.ImageUpload{Body: f.file, ContentType: f.contentType})
		}

		rating, err := svc.AddRating(r.Context(), reviewerID, productID, body, uploads)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]*ratings.RatingDTO{"rating": rating})
	}
}

// RatingUpdate edits the caller's review of a product.
func RatingUpdate(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reviewerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body ratings.UpdateRatingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rating, err := svc.UpdateRating(r.Context(), reviewerID, productID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]*ratings.RatingDTO{"rating": rating})
	}
}

// RatingDelete removes the caller's review of a product.
func RatingDelete(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reviewerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteRating(r.Context(), reviewerID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// ProductRatings returns the review aggregate for one product.
func ProductRatings(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := parseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		aggregate, err := svc.AggregateForProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, aggregate)
	}
}

// MyRatings lists every review the caller has written.
func MyRatings(svc ratings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reviewerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.GetUserRatings(r.Context(), reviewerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string][]ratings.RatingDTO{"ratings": list})
	}
}
