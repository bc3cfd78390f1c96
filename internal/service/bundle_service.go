// Package service provides the map and chart bundles served by the API.
package service

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lokdhaba/dataviz/internal/dataset"
	"github.com/lokdhaba/dataviz/internal/legend"
	"github.com/lokdhaba/dataviz/internal/viz"
	"github.com/lokdhaba/dataviz/pkg/colormap"
	"github.com/lokdhaba/dataviz/pkg/value"
)

// ErrUnknownVisualization is returned for identifiers outside the map and
// chart tables.
var ErrUnknownVisualization = errors.New("unknown visualization")

// DefaultKeyField identifies constituencies in map responses.
const DefaultKeyField = "Constituency_No"

// BundleServiceConfig contains bundle service configuration.
type BundleServiceConfig struct {
	Store    *dataset.Store
	Selector *viz.Selector
	KeyField string
	Logger   *zap.Logger
}

// BundleService resolves datasets and turns selector bundles into
// responses.
type BundleService struct {
	store    *dataset.Store
	selector *viz.Selector
	keyField string
	logger   *zap.Logger
}

// NewBundleService creates a new bundle service.
func NewBundleService(cfg BundleServiceConfig) *BundleService {
	keyField := cfg.KeyField
	if keyField == "" {
		keyField = DefaultKeyField
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BundleService{
		store:    cfg.Store,
		selector: cfg.Selector,
		keyField: keyField,
		logger:   logger,
	}
}

// Query selects one visualization of one dataset.
type Query struct {
	Dataset       string
	Visualization string
	// Buckets is the enabled bucket list. Nil enables every bucket; an
	// empty non-nil slice enables none.
	Buckets []string
	// Change switches maps with a delta field to the change view.
	Change bool
	// AssemblyNo overrides the dataset's assembly number when nonzero.
	AssemblyNo int
	// Options are chart overlay names.
	Options []string
}

// LegendItem is one legend row with its swatch color.
type LegendItem struct {
	Key   string       `json:"key"`
	Count int          `json:"count"`
	Color colormap.Hex `json:"color"`
}

// MapResponse is the JSON form of a map bundle.
type MapResponse struct {
	Dataset    string         `json:"dataset"`
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Field      string         `json:"field"`
	LegendType viz.LegendType `json:"legend_type"`
	Domain     *viz.Domain    `json:"domain,omitempty"`
	Change     bool           `json:"change"`
	Buckets    []string       `json:"buckets"`
	Legend     []LegendItem   `json:"legend"`
	Colors     []colormap.Hex `json:"colors"`
	Keys       []string       `json:"keys,omitempty"`
	// Stops are the gradient control points of continuous maps.
	Stops      []ScaleStop    `json:"stops,omitempty"`
	// Gradient samples the continuous scale evenly for a legend bar.
	Gradient   []colormap.Hex `json:"gradient,omitempty"`
	// Version changes whenever the dataset content or the palettes do.
	Version    string         `json:"version"`
}

// ScaleStop is one control point of a continuous scale.
type ScaleStop struct {
	Value float64      `json:"value"`
	Color colormap.Hex `json:"color"`
}

// GradientSamples is the number of colors sampled into MapResponse.Gradient.
const GradientSamples = 11

// ChartResponse is the JSON form of a chart bundle.
type ChartResponse struct {
	Dataset  string        `json:"dataset"`
	ID       string        `json:"id"`
	Kind     viz.ChartKind `json:"kind"`
	Field    string        `json:"field"`
	Layout   viz.Layout    `json:"layout"`
	Overlays []viz.Overlay `json:"overlays"`
	// AdditionalText holds per-point annotations keyed by party.
	AdditionalText map[string][]string `json:"additional_text,omitempty"`
	Version        string              `json:"version"`
}

// Visualizations lists the map and chart identifiers.
type Visualizations struct {
	Maps   []viz.Info `json:"maps"`
	Charts []viz.Info `json:"charts"`
}

// Visualizations returns every known visualization.
func (s *BundleService) Visualizations() Visualizations {
	return Visualizations{Maps: viz.MapKinds(), Charts: viz.ChartKinds()}
}

// Datasets returns the configured datasets in config order.
func (s *BundleService) Datasets() []dataset.Source {
	return s.store.Sources()
}

// Dataset returns the source registered under id.
func (s *BundleService) Dataset(id string) (dataset.Source, bool) {
	return s.store.Source(id)
}

type loaded struct {
	data    dataset.Dataset
	display viz.Display
	version string
}

func (s *BundleService) load(q Query) (*loaded, error) {
	src, ok := s.store.Source(q.Dataset)
	if !ok {
		return nil, fmt.Errorf("dataset %q: %w", q.Dataset, dataset.ErrNotFound)
	}
	data, err := s.store.Load(q.Dataset)
	if err != nil {
		return nil, err
	}
	display := viz.Display{
		ElectionType: src.ElectionType,
		AssemblyNo:   src.AssemblyNo,
		StateName:    src.StateName,
	}
	if q.AssemblyNo != 0 {
		display.AssemblyNo = q.AssemblyNo
	}
	return &loaded{
		data:    data,
		display: display,
		version: s.store.Version(q.Dataset) + "-" + s.selector.Fingerprint(),
	}, nil
}

// Map builds the map response for q.
func (s *BundleService) Map(q Query) (*MapResponse, error) {
	if !viz.IsMap(q.Visualization) {
		return nil, fmt.Errorf("map %q: %w", q.Visualization, ErrUnknownVisualization)
	}
	l, err := s.load(q)
	if err != nil {
		return nil, err
	}
	data := l.data

	all := s.selector.Buckets(q.Visualization, data)
	enabled := q.Buckets
	if enabled == nil {
		enabled = all
	}

	bundle := s.selector.Map(viz.MapRequest{
		Visualization: q.Visualization,
		Data:          data,
		Filter:        legend.NewFilter(enabled...),
		Display:       l.display,
		ShowChangeMap: q.Change,
	})

	resp := &MapResponse{
		Dataset:    q.Dataset,
		ID:         q.Visualization,
		Title:      bundle.Title,
		Field:      bundle.Field,
		LegendType: bundle.LegendType,
		Domain:     bundle.Domain,
		Change:     bundle.Change,
		Buckets:    all,
		Legend:     make([]LegendItem, 0, len(bundle.Legend)),
		Colors:     make([]colormap.Hex, len(data)),
		Version:    l.version,
	}
	if resp.Buckets == nil {
		resp.Buckets = []string{}
	}
	for _, e := range bundle.Legend {
		resp.Legend = append(resp.Legend, LegendItem{
			Key:   e.Key,
			Count: e.Count,
			Color: bundle.LegendColor(e.Key),
		})
	}

	if bundle.Scale != nil {
		for i, v := range bundle.Scale.Stops() {
			resp.Stops = append(resp.Stops, ScaleStop{
				Value: v,
				Color: colormap.FromColor(bundle.Scale.AtIndex(i)),
			})
		}
		resp.Gradient = colormap.Sample(bundle.Scale, GradientSamples)
	}

	keys := make([]string, len(data))
	haveKeys := false
	for i, r := range data {
		resp.Colors[i] = bundle.Color(r)
		if k, ok := value.String(r.Get(s.keyField)); ok {
			keys[i] = k
			haveKeys = true
		}
	}
	if haveKeys {
		resp.Keys = keys
	}

	s.logger.Debug("map bundle",
		zap.String("dataset", q.Dataset),
		zap.String("viz", q.Visualization),
		zap.Bool("change", resp.Change),
		zap.Int("records", len(data)),
		zap.Int("legend", len(resp.Legend)),
	)
	return resp, nil
}

// Chart builds the chart response for q. Options are enabled by their
// underscore-free name unless q.Buckets restricts them.
func (s *BundleService) Chart(q Query) (*ChartResponse, error) {
	if !viz.IsChart(q.Visualization) {
		return nil, fmt.Errorf("chart %q: %w", q.Visualization, ErrUnknownVisualization)
	}
	l, err := s.load(q)
	if err != nil {
		return nil, err
	}
	data := l.data

	filter := legend.NewFilter(q.Buckets...)
	if q.Buckets == nil {
		filter = legend.NewFilter(overlayKeys(q.Options)...)
	}

	bundle := s.selector.Chart(viz.ChartRequest{
		Visualization: q.Visualization,
		Data:          data,
		Filter:        filter,
		Display:       l.display,
		Options:       q.Options,
	})

	resp := &ChartResponse{
		Dataset:  q.Dataset,
		ID:       q.Visualization,
		Kind:     bundle.Kind,
		Field:    bundle.Field,
		Layout:   bundle.Layout,
		Overlays: bundle.Overlays,
		Version:  l.version,
	}
	if bundle.HasAdditionalText() {
		resp.AdditionalText = make(map[string][]string)
		for _, party := range legend.Categories(data, "Party") {
			n := len(data.Filter(func(r dataset.Record) bool {
				p, ok := value.String(r.Get("Party"))
				return ok && p == party
			}))
			texts := make([]string, n)
			for i := range texts {
				texts[i] = bundle.AdditionalText(party, i)
			}
			resp.AdditionalText[party] = texts
		}
	}

	s.logger.Debug("chart bundle",
		zap.String("dataset", q.Dataset),
		zap.String("viz", q.Visualization),
		zap.Int("overlays", len(resp.Overlays)),
	)
	return resp, nil
}

func overlayKeys(options []string) []string {
	keys := make([]string, len(options))
	for i, o := range options {
		keys[i] = strings.ReplaceAll(o, "_", "")
	}
	return keys
}
