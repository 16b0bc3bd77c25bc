package controller

import (
	"net/http"
	"testing"

	"clinic-api/core/errors"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusForCode(t *testing.T) {
	cases := []struct {
		code errors.ErrorCode
		want int
	}{
		{errors.ErrInvalidInput, http.StatusBadRequest},
		{errors.ErrInvalidState, http.StatusBadRequest},
		{errors.ErrInvalidArgument, http.StatusBadRequest},
		{errors.ErrUnauthorized, http.StatusUnauthorized},
		{errors.ErrTokenExpired, http.StatusUnauthorized},
		{errors.ErrForbidden, http.StatusForbidden},
		{errors.ErrNotFound, http.StatusNotFound},
		{errors.ErrRefreshTokenMissing, http.StatusConflict},
		{errors.ErrTransient, http.StatusServiceUnavailable},
		{errors.ErrAuthorizationFailed, http.StatusBadGateway},
		{errors.ErrInternalServer, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatusForCode(tc.code), "code %s", tc.code)
	}
}
