package apperror

import "net/http"

func GetHTTPStatus(kind Kind) int {

	switch kind {
	case InvalidInput, InvalidHost:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict, AlreadyExists:
		return http.StatusConflict
	case Unauthorised:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case RequestTimeout:
		return http.StatusGatewayTimeout
	case Dependency:
		return http.StatusBadGateway
	case Unavailable:
		return http.StatusServiceUnavailable
	case Internal, DatabaseErr:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
