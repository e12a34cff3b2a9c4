package controllers

import (
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bazaarly/bazaarly-backend/api/middleware"
	"github.com/bazaarly/bazaarly-backend/pkg/enums"
	pkgerrors "github.com/bazaarly/bazaarly-backend/pkg/errors"
)

const maxUploadBytes = 32 << 20

// actorID reads the authenticated user id seeded by the auth middleware.
func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid credentials")
	}
	return id, nil
}

func actorRole(r *http.Request) enums.UserRole {
	return enums.UserRole(middleware.RoleFromContext(r.Context()))
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid identifier").
			WithDetails(map[string]string{name: "must be a uuid"})
	}
	return id, nil
}

// formImage is one uploaded file from a multipart form, paired with its
// declared content type.
type formImage struct {
	file        multipart.File
	contentType string
}

// openFormImages opens every file uploaded under the named field. The caller
// must invoke the returned closer once the bodies have been consumed.
func openFormImages(r *http.Request, field string) ([]formImage, func(), error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	if r.MultipartForm == nil {
		return nil, func() {}, nil
	}

	var images []formImage
	closeAll := func() {
		for _, img := range images {
			img.file.Close()
		}
	}

	for _, header := range r.MultipartForm.File[field] {
		file, err := header.Open()
		if err != nil {
			closeAll()
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unreadable upload")
		}
		images = append(images, formImage{
			file:        file,
			contentType: header.Header.Get("Content-Type"),
		})
	}
	return images, closeAll, nil
}
