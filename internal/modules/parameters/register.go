package parameters

import (
	"log/slog"
	"net/http"

	"prodline-server/internal/modules/parameters/controller"
)

func RegisterFeature(mux *http.ServeMux, svc controller.ReadingService, logger *slog.Logger) {
	parametersController := controller.NewParametersController(svc, logger)
	parametersController.RegisterRoutes(mux)
}
