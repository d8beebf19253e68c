package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"prodline-server/internal/modules/parameters/service"
	"prodline-server/internal/utils"
)

const maxBodyBytes = 1 << 20

var errBodyNotObject = errors.New("request body must be a JSON object")

// writeServiceError maps service errors onto status codes. Unknown errors are
// logged and reported without detail.
func (c *parametersControllerImpl) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.WriteFieldErrors(w, http.StatusBadRequest, verr.Fields)
	case errors.Is(err, service.ErrInvalidArgument):
		utils.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNonFinite):
		c.logger.WarnContext(r.Context(), op+" rejected", "error", err)
		utils.WriteError(w, http.StatusConflict, err.Error())
	default:
		c.logger.ErrorContext(r.Context(), op+" failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeInput reads a create payload from a JSON object body or, for HTML
// forms, from url-encoded fields.
func decodeInput(w http.ResponseWriter, r *http.Request) (service.CreateInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
		in := service.CreateInput{}
		for key, values := range r.PostForm {
			if len(values) > 0 {
				in[key] = values[0]
			}
		}
		return in, nil
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errBodyNotObject
		}
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errBodyNotObject
	}
	return service.CreateInput(obj), nil
}

func hoursParam(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("hours"))
}
