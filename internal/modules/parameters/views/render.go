package views

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"time"

	"prodline-server/internal/modules/parameters/types"
)

//go:embed templates
var viewsFS embed.FS

var pagesTmpl *template.Template

var funcs = template.FuncMap{
	"pct": func(f float64) float64 { return f * 100 },
	"ts": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04:05")
	},
}

// loadTemplatesFromFS parses every page and partial under dir.
// Tests use it with in-memory filesystems to simulate broken templates.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	pagesTmpl = tmpl
	return nil
}

// LoadTemplates parses the embedded templates. Call it once at startup and
// refuse to serve if it fails.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

func execute(w io.Writer, name string, data any) error {
	if pagesTmpl == nil {
		return errors.New("templates not loaded: call views.LoadTemplates during startup")
	}
	return pagesTmpl.ExecuteTemplate(w, name, data)
}

type ParameterRow struct {
	Label          string
	Unit           string
	Current        float64
	Target         float64
	HasTarget      bool
	Relative       float64
	OutOfTolerance bool
}

// CurrentData is the "current values" panel. Without a measurement every
// value reads zero.
type CurrentData struct {
	Rows           []ParameterRow
	UpdatedAt      *time.Time
	MeasuredCount  int
	Tolerance      float64
	OutOfTolerance bool
}

var fieldMeta = map[string]struct{ label, unit string }{
	types.FieldTemperature: {"Temperature", "°C"},
	types.FieldHumidity:    {"Humidity", "%"},
	types.FieldPressure:    {"Pressure", "hPa"},
	types.FieldSpeed:       {"Speed", "rpm"},
}

func NewCurrentData(o types.Overview, tolerance float64) CurrentData {
	data := CurrentData{MeasuredCount: o.MeasuredCount, Tolerance: tolerance}
	if o.Latest != nil {
		ts := o.Latest.Timestamp
		data.UpdatedAt = &ts
	}
	deviations := map[string]types.FieldDeviation{}
	if o.Deviation != nil {
		data.OutOfTolerance = o.Deviation.OutOfTolerance
		for _, d := range o.Deviation.Fields {
			deviations[d.Field] = d
		}
	}
	for _, field := range types.Fields {
		row := ParameterRow{Label: fieldMeta[field].label, Unit: fieldMeta[field].unit}
		if o.Latest != nil {
			row.Current, _ = o.Latest.Get(field)
		}
		if o.Target != nil {
			row.Target, _ = o.Target.Get(field)
			row.HasTarget = true
		}
		if d, ok := deviations[field]; ok {
			row.Relative = d.Relative
			row.OutOfTolerance = d.OutOfTolerance
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

type DashboardData struct {
	Current CurrentData
	Hours   int
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	return execute(w, "dashboard.html", data)
}

// HistoryTable is the history partial: a window of measured readings, newest first.
type HistoryTable struct {
	Hours    int
	Readings []types.Reading
}

type HistoryPage struct {
	Hours       int
	HourOptions []int
	Table       HistoryTable
}

// HourOptions are the windows offered by the history selector.
var HourOptions = []int{1, 6, 12, 24, 48, 168}

func RenderHistory(w io.Writer, data *HistoryPage) error {
	return execute(w, "history.html", data)
}

// RenderCurrentPartial executes only the current-values partial for HTMX refresh.
func RenderCurrentPartial(w io.Writer, data *CurrentData) error {
	return execute(w, "partials/current", data)
}

// RenderHistoryPartial executes only the history table for HTMX refresh.
func RenderHistoryPartial(w io.Writer, data *HistoryTable) error {
	return execute(w, "partials/history", data)
}
