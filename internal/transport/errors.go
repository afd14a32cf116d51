package transport

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/xinodeprinz/edstock-server/internal/middleware"
	"github.com/xinodeprinz/edstock-server/internal/photo"
	"github.com/xinodeprinz/edstock-server/internal/repository"
	"github.com/xinodeprinz/edstock-server/internal/service"
)

const (
	msgProductReferenced = "Cannot delete product because it is referenced by sales or purchases records"
	msgUserReferenced    = "Cannot delete user because it is referenced by sales or purchases records"
	msgInvalidLogin      = "Invalid login credentials"
)

// respondWithServiceError maps service and repository errors to a status and
// message. Unclassified errors are logged and answered with fallback.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var (
		validationErr *service.ValidationError
		uploadErr     *photo.ValidationError
		storageErr    *photo.StorageError
	)

	switch {
	case errors.As(err, &validationErr):
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, validationErr.Error(),
			map[string]interface{}{"field": validationErr.Field})
	case errors.As(err, &uploadErr):
		middleware.RespondWithErrorDetails(w, http.StatusBadRequest, uploadErr.Error(),
			map[string]interface{}{"field": uploadErr.Field})
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, repository.ErrUserNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, repository.ErrProductReferenced):
		middleware.RespondWithError(w, http.StatusBadRequest, msgProductReferenced)
	case errors.Is(err, repository.ErrUserReferenced):
		middleware.RespondWithError(w, http.StatusBadRequest, msgUserReferenced)
	case errors.Is(err, repository.ErrUserAlreadyExists):
		middleware.RespondWithError(w, http.StatusConflict, repository.ErrUserAlreadyExists.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		middleware.RespondWithError(w, http.StatusBadRequest, msgInvalidLogin)
	case errors.Is(err, service.ErrNotificationFailed):
		logger.Error("Mutation committed but notification failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, service.ErrNotificationFailed.Error())
	case errors.As(err, &storageErr):
		logger.Error("Photo storage failed", zap.String("key", storageErr.Key), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to store photo")
	case errors.Is(err, context.Canceled):
		logger.Debug("Request cancelled by client", zap.Error(err))
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}
