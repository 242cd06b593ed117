package shared

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"paycore/internal/domain/errs"
)

type DocumentOpener interface {
	Open(ref string) ([]byte, error)
}

// ServePDF streams a stored document as an attachment.
func ServePDF(w http.ResponseWriter, r *http.Request, docs DocumentOpener, ref, filename string) {
	data, err := docs.Open(ref)
	if errors.Is(err, os.ErrNotExist) {
		Respond(w, r, nil, errs.NotFound("document", ref))
		return
	}
	if err != nil {
		Respond(w, r, nil, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Warn("document write failed", "ref", ref, "err", err)
	}
}
