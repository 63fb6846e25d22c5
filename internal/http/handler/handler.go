package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizlink/workplace-console/internal/domain"
	"github.com/bizlink/workplace-console/internal/signedrequest"
)

func renderError(c *gin.Context, status int, message string) {
	c.HTML(status, "error.tmpl", gin.H{"Message": message})
}

// renderServiceError maps domain errors from the install and linking flows
// to user-facing pages, falling back to a generic 500.
func renderServiceError(c *gin.Context, logger *zap.Logger, err error) {
	var mismatch *signedrequest.SignatureMismatchError
	if errors.As(err, &mismatch) {
		renderError(c, http.StatusBadRequest, mismatch.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrMissingCode):
		renderError(c, http.StatusBadRequest, "No code or id_token was received from the authorization server.")
	case errors.Is(err, domain.ErrMissingSignedRequest):
		renderError(c, http.StatusBadRequest, "No signed_request was received.")
	case errors.Is(err, domain.ErrMissingRedirectURI):
		renderError(c, http.StatusBadRequest, "No redirect_uri was received.")
	case errors.Is(err, domain.ErrMalformedSignedRequest):
		renderError(c, http.StatusBadRequest, "The signed_request could not be parsed.")
	case errors.Is(err, domain.ErrUnknownKey):
		renderError(c, http.StatusBadRequest, "The id_token was signed with an unrecognized key.")
	case errors.Is(err, domain.ErrTokenInvalid):
		renderError(c, http.StatusBadRequest, "The id_token failed verification.")
	default:
		logger.Error("request failed", zap.Error(err))
		renderError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}
