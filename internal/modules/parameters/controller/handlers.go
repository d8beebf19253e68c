package controller

import (
	"errors"
	"net/http"

	"prodline-server/internal/modules/parameters/service"
	"prodline-server/internal/modules/parameters/types"
	"prodline-server/internal/utils"
)

// writeReading writes r, or an empty object when there is none.
func writeReading(w http.ResponseWriter, r *types.Reading) {
	if r == nil {
		utils.WriteJSON(w, http.StatusOK, struct{}{})
		return
	}
	utils.WriteJSON(w, http.StatusOK, r)
}

func (c *parametersControllerImpl) handleLatest(w http.ResponseWriter, r *http.Request) {
	reading, err := c.service.LatestMeasured(r.Context())
	if err != nil {
		c.writeServiceError(w, r, "latest", err)
		return
	}
	writeReading(w, reading)
}

func (c *parametersControllerImpl) handleTarget(w http.ResponseWriter, r *http.Request) {
	reading, err := c.service.LatestTarget(r.Context())
	if err != nil {
		c.writeServiceError(w, r, "target", err)
		return
	}
	writeReading(w, reading)
}

func (c *parametersControllerImpl) handleHistory(w http.ResponseWriter, r *http.Request) {
	hours, err := c.service.ParseHours(hoursParam(r))
	if err != nil {
		c.writeServiceError(w, r, "history", err)
		return
	}
	readings, err := c.service.History(r.Context(), hours)
	if err != nil {
		c.writeServiceError(w, r, "history", err)
		return
	}
	if readings == nil {
		readings = []types.Reading{}
	}
	utils.WriteJSON(w, http.StatusOK, readings)
}

func (c *parametersControllerImpl) handleStream(w http.ResponseWriter, r *http.Request) {
	reading, err := c.service.Perturb(r.Context())
	if err != nil {
		c.writeServiceError(w, r, "stream", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, reading)
}

func (c *parametersControllerImpl) handleDeviation(w http.ResponseWriter, r *http.Request) {
	report, err := c.service.Deviation(r.Context())
	if err != nil {
		c.writeServiceError(w, r, "deviation", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, report)
}

func (c *parametersControllerImpl) handleCreate(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(w, r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	reading, err := c.service.Create(r.Context(), in)
	if err != nil {
		c.writeServiceError(w, r, "create", err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, reading)
}

func (c *parametersControllerImpl) handleSeries(w http.ResponseWriter, r *http.Request) {
	hours, err := c.service.ParseHours(hoursParam(r))
	if err != nil {
		c.writeServiceError(w, r, "series", err)
		return
	}
	series, err := c.service.Series(r.Context(), hours)
	if err != nil {
		c.writeServiceError(w, r, "series", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, series)
}

type apiCreateResponse struct {
	Success bool           `json:"success"`
	Reading *types.Reading `json:"reading,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func (c *parametersControllerImpl) handleAPICreate(w http.ResponseWriter, r *http.Request) {
	in, err := decodeInput(w, r)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, apiCreateResponse{Error: err.Error()})
		return
	}
	reading, err := c.service.Create(r.Context(), in)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			utils.WriteJSON(w, http.StatusBadRequest, apiCreateResponse{Error: verr.Error()})
			return
		}
		c.logger.ErrorContext(r.Context(), "api create failed", "error", err)
		utils.WriteJSON(w, http.StatusInternalServerError, apiCreateResponse{Error: "internal error"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, apiCreateResponse{Success: true, Reading: &reading})
}
