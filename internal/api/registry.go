package api

import (
	"fmt"
	"strings"

	"github.com/lokdhaba/dataviz/internal/service"
	"github.com/lokdhaba/dataviz/internal/viz"
)

// DatasetInfo contains information about a dataset for the API response.
type DatasetInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ElectionType string `json:"election_type"`
	StateName    string `json:"state_name,omitempty"`
	AssemblyNo   int    `json:"assembly_no,omitempty"`
}

// DatasetRegistry exposes the configured datasets and the site settings.
type DatasetRegistry struct {
	svc            *service.BundleService
	defaultDataset string
	title          string
}

// NewDatasetRegistry creates a new dataset registry.
func NewDatasetRegistry(svc *service.BundleService, defaultDataset, title string) *DatasetRegistry {
	return &DatasetRegistry{
		svc:            svc,
		defaultDataset: defaultDataset,
		title:          title,
	}
}

// Service returns the bundle service.
func (r *DatasetRegistry) Service() *service.BundleService {
	return r.svc
}

// Has reports whether datasetID is configured.
func (r *DatasetRegistry) Has(datasetID string) bool {
	_, ok := r.svc.Dataset(datasetID)
	return ok
}

// DefaultDatasetID returns the default dataset ID.
func (r *DatasetRegistry) DefaultDatasetID() string {
	return r.defaultDataset
}

// Title returns the configured site title.
func (r *DatasetRegistry) Title() string {
	if r.title != "" {
		return r.title
	}
	return "Lokdhaba"
}

// Datasets returns dataset info in config order.
func (r *DatasetRegistry) Datasets() []DatasetInfo {
	sources := r.svc.Datasets()
	infos := make([]DatasetInfo, 0, len(sources))
	for _, src := range sources {
		d := viz.Display{ElectionType: src.ElectionType, StateName: src.StateName, AssemblyNo: src.AssemblyNo}
		name := strings.TrimSpace(d.StateDisplayName() + " " + d.ElectionTypeName())
		if src.AssemblyNo > 0 {
			name = fmt.Sprintf("%s #%d", name, src.AssemblyNo)
		}
		infos = append(infos, DatasetInfo{
			ID:           src.ID,
			Name:         name,
			ElectionType: src.ElectionType,
			StateName:    src.StateName,
			AssemblyNo:   src.AssemblyNo,
		})
	}
	return infos
}
