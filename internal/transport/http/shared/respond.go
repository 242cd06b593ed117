package shared

import (
	"net/http"

	"paycore/internal/requestctx"
	"paycore/internal/transport/http/api"
)

// Respond writes data on success or the mapped domain error.
func Respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	reqID := requestctx.GetRequestID(r.Context())
	if err != nil {
		api.FailErr(w, err, reqID)
		return
	}
	api.Success(w, data, reqID)
}

func RespondCreated(w http.ResponseWriter, r *http.Request, data any, err error) {
	reqID := requestctx.GetRequestID(r.Context())
	if err != nil {
		api.FailErr(w, err, reqID)
		return
	}
	api.Created(w, data, reqID)
}
