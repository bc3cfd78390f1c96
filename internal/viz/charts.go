package viz

import (
	"fmt"
	"strings"

	"github.com/lokdhaba/dataviz/internal/dataset"
	"github.com/lokdhaba/dataviz/internal/legend"
	"github.com/lokdhaba/dataviz/pkg/value"
)

// ChartKind names the chart component that draws a chart bundle.
type ChartKind string

const (
	BarChart          ChartKind = "BarChart"
	PartyScatterChart ChartKind = "PartyScatterChart"
)

// Axis is the layout of one chart axis.
type Axis struct {
	Title     string      `json:"title"`
	Range     *[2]float64 `json:"range,omitempty"`
	AutoRange bool        `json:"autorange"`
}

// Layout is the chart layout handed to the plotting library.
type Layout struct {
	Title string `json:"title"`
	XAxis Axis   `json:"xaxis"`
	YAxis Axis   `json:"yaxis"`
}

// Overlay is an optional series the viewer switched on.
type Overlay struct {
	Label     string `json:"label"`
	Value     string `json:"value"`
	FilterKey string `json:"filter_key"`
}

// ChartRequest is the input of one chart render.
type ChartRequest struct {
	Visualization string
	Data          dataset.Dataset
	Filter        legend.Filter
	Display       Display
	// Options are the overlay names offered for the chart, e.g.
	// "Total_Candidates". An option is shown when its name without
	// underscores is enabled in Filter.
	Options []string
}

// ChartBundle is what the chart renderer consumes.
type ChartBundle struct {
	Kind     ChartKind
	Field    string
	Layout   Layout
	Overlays []Overlay

	additionalText func(party string, idx int) string
}

// HasAdditionalText reports whether points carry an annotation.
func (b ChartBundle) HasAdditionalText() bool {
	return b.additionalText != nil
}

// AdditionalText annotates the idx-th point of party's series, or returns
// "" when the chart has no annotations.
func (b ChartBundle) AdditionalText(party string, idx int) string {
	if b.additionalText == nil {
		return ""
	}
	return b.additionalText(party, idx)
}

const yearAxisTitle = "Year(Assembly Number)"

// chartKind is one row of the chart table. subject starts the title.
type chartKind struct {
	kind     ChartKind
	field    string
	subject  string
	yTitle   string
	percent  bool
	seatText bool
}

var chartOrder = []string{
	"voterTurnoutChart",
	"partiesPresentedChart",
	"tvoteShareChart",
	"cvoteShareChart",
	"seatShareChart",
	"strikeRateChart",
	"contestedDepositSavedChart",
}

var chartKinds = map[string]chartKind{
	"voterTurnoutChart": {
		kind:    BarChart,
		subject: "Voter turnout",
		yTitle:  "Turnout in %",
		percent: true,
	},
	"partiesPresentedChart": {
		kind:    BarChart,
		subject: "Parties Contested and Represented",
		yTitle:  "Number of Parties",
	},
	"tvoteShareChart": {
		kind:    PartyScatterChart,
		field:   "Vote_Share_in_Assembly",
		subject: "Party wise voteshare in all seats",
		yTitle:  "Vote share %",
		percent: true,
	},
	"cvoteShareChart": {
		kind:    PartyScatterChart,
		field:   "Vote_Share_in_Contested_Seats",
		subject: "Party wise voteshare in seats contested",
		yTitle:  "Vote share %",
		percent: true,
	},
	"seatShareChart": {
		kind:     PartyScatterChart,
		field:    "Seat_Share",
		subject:  "Party wise seat share",
		yTitle:   "Seat share %",
		percent:  true,
		seatText: true,
	},
	"strikeRateChart": {
		kind:    PartyScatterChart,
		field:   "Strike_Rate",
		subject: "Party wise Strike Rate",
		yTitle:  "Strike Rate %",
		percent: true,
	},
	"contestedDepositSavedChart": {
		kind:    BarChart,
		subject: "Contested and deposit lost",
		yTitle:  "Number of Candidates",
	},
}

// ChartKinds lists the chart identifiers in menu order.
func ChartKinds() []Info {
	out := make([]Info, 0, len(chartOrder))
	for _, id := range chartOrder {
		k := chartKinds[id]
		out = append(out, Info{ID: id, Field: k.field, ChartKind: k.kind})
	}
	return out
}

// IsChart reports whether id names a chart.
func IsChart(id string) bool {
	_, ok := chartKinds[id]
	return ok
}

// Chart builds the bundle for a chart request.
func (s *Selector) Chart(req ChartRequest) ChartBundle {
	k, ok := chartKinds[req.Visualization]
	if !ok {
		return ChartBundle{}
	}

	title := fmt.Sprintf("%s across years in %s", k.subject, req.Display.ElectionTypeName())
	if state := req.Display.StateDisplayName(); state != "" {
		title = fmt.Sprintf("%s across years in %s %s", k.subject, state, req.Display.ElectionTypeName())
	}

	y := Axis{Title: k.yTitle, AutoRange: true}
	if k.percent {
		y.Range = &[2]float64{0, 100}
		y.AutoRange = false
	}

	b := ChartBundle{
		Kind:  k.kind,
		Field: k.field,
		Layout: Layout{
			Title: title,
			XAxis: Axis{Title: yearAxisTitle, AutoRange: true},
			YAxis: y,
		},
		Overlays: Overlays(req.Options, req.Filter),
	}
	if k.seatText {
		b.additionalText = seatsText(req.Data)
	}
	return b
}

// Overlays keeps the options whose underscore-free name is enabled,
// preserving input order.
func Overlays(options []string, filter legend.Filter) []Overlay {
	out := make([]Overlay, 0, len(options))
	for _, opt := range options {
		key := strings.ReplaceAll(opt, "_", "")
		if !filter.Has(key) {
			continue
		}
		out = append(out, Overlay{
			Label:     strings.ReplaceAll(opt, "_", " "),
			Value:     opt,
			FilterKey: key,
		})
	}
	return out
}

// seatsText formats "<won>/<total> Seats" for the idx-th record of a party.
func seatsText(data dataset.Dataset) func(party string, idx int) string {
	return func(party string, idx int) string {
		rows := data.Filter(func(r dataset.Record) bool {
			p, ok := value.String(r.Get("Party"))
			return ok && p == party
		})
		if idx < 0 || idx >= len(rows) {
			return ""
		}
		won, _ := value.String(rows[idx].Get("Winners"))
		total, _ := value.String(rows[idx].Get("Total_Seats_in_Assembly"))
		return won + "/" + total + " Seats"
	}
}
