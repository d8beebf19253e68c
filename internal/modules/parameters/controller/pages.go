package controller

import (
	"io"
	"net/http"

	"prodline-server/internal/modules/parameters/views"
	"prodline-server/internal/utils"
)

func (c *parametersControllerImpl) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
}

func (c *parametersControllerImpl) currentData(r *http.Request) (views.CurrentData, error) {
	overview, err := c.service.Overview(r.Context())
	if err != nil {
		return views.CurrentData{}, err
	}
	return views.NewCurrentData(overview, c.service.Options().Tolerance), nil
}

func (c *parametersControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	current, err := c.currentData(r)
	if err != nil {
		c.writeServiceError(w, r, "dashboard", err)
		return
	}
	data := &views.DashboardData{Current: current, Hours: c.service.Options().DefaultHours}
	c.renderHTML(w, r, "dashboard", func(out io.Writer) error { return views.RenderDashboard(out, data) })
}

func (c *parametersControllerImpl) handleCurrentPartial(w http.ResponseWriter, r *http.Request) {
	current, err := c.currentData(r)
	if err != nil {
		c.writeServiceError(w, r, "current partial", err)
		return
	}
	c.renderHTML(w, r, "current partial", func(out io.Writer) error { return views.RenderCurrentPartial(out, &current) })
}

func (c *parametersControllerImpl) historyTable(r *http.Request) (views.HistoryTable, error) {
	hours, err := c.service.ParseHours(hoursParam(r))
	if err != nil {
		return views.HistoryTable{}, err
	}
	readings, err := c.service.History(r.Context(), hours)
	if err != nil {
		return views.HistoryTable{}, err
	}
	return views.HistoryTable{Hours: hours, Readings: readings}, nil
}

func (c *parametersControllerImpl) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	table, err := c.historyTable(r)
	if err != nil {
		c.writeServiceError(w, r, "history page", err)
		return
	}
	data := &views.HistoryPage{Hours: table.Hours, HourOptions: views.HourOptions, Table: table}
	c.renderHTML(w, r, "history page", func(out io.Writer) error { return views.RenderHistory(out, data) })
}

func (c *parametersControllerImpl) handleHistoryPartial(w http.ResponseWriter, r *http.Request) {
	table, err := c.historyTable(r)
	if err != nil {
		c.writeServiceError(w, r, "history partial", err)
		return
	}
	c.renderHTML(w, r, "history partial", func(out io.Writer) error { return views.RenderHistoryPartial(out, &table) })
}

func (c *parametersControllerImpl) renderHTML(w http.ResponseWriter, r *http.Request, page string, render func(io.Writer) error) {
	if err := utils.WriteHTML(w, http.StatusOK, render); err != nil {
		c.logger.ErrorContext(r.Context(), page+" template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
	}
}
