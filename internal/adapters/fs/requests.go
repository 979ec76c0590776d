package fs

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/mbtools/modpoll/internal/domain"
)

// fileRequest mirrors domain.RequestSpec with TOML-friendly field types.
type fileRequest struct {
	ID           string   `toml:"id"`
	Name         string   `toml:"name"`
	Function     uint8    `toml:"function"`
	StartAddress uint16   `toml:"start_address"`
	Count        uint16   `toml:"count"`
	SlaveID      uint8    `toml:"slave_id"`
	Values       []uint16 `toml:"values,omitempty"`
	Order        int      `toml:"order"`
	CyclesLimit  int      `toml:"cycles_limit,omitempty"`
	DelayAfter   string   `toml:"delay_after"`
}

type requestDoc struct {
	Requests []fileRequest `toml:"request"`
}

// RequestFile implements ports.RequestStore on one TOML file holding an
// array of request tables.
type RequestFile struct {
	path string
}

// NewRequestFile creates a store backed by the file at path.
func NewRequestFile(path string) *RequestFile {
	return &RequestFile{path: path}
}

// Path returns the backing file path.
func (r *RequestFile) Path() string { return r.path }

// LoadRequests reads and parses the request file. Every entry is validated;
// a missing file yields an empty list.
func (r *RequestFile) LoadRequests() ([]domain.RequestSpec, error) {
	b, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var doc requestDoc
	if err := toml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", r.path, err)
	}

	specs := make([]domain.RequestSpec, 0, len(doc.Requests))
	seen := make(map[string]bool, len(doc.Requests))
	for _, fr := range doc.Requests {
		if fr.ID == "" {
			return nil, fmt.Errorf("parse %s: request without id", r.path)
		}
		if seen[fr.ID] {
			return nil, fmt.Errorf("parse %s: duplicate request id %q", r.path, fr.ID)
		}
		seen[fr.ID] = true

		spec := domain.RequestSpec{
			ID:           fr.ID,
			Name:         fr.Name,
			Function:     domain.FunctionCode(fr.Function),
			StartAddress: fr.StartAddress,
			Count:        fr.Count,
			SlaveID:      fr.SlaveID,
			Values:       fr.Values,
			Order:        fr.Order,
			CyclesLimit:  fr.CyclesLimit,
		}
		if fr.DelayAfter == "" {
			// Absent means the stock inter-request pause, not zero.
			spec.DelayAfter = domain.DefaultDelayAfter
		} else {
			d, err := time.ParseDuration(fr.DelayAfter)
			if err != nil {
				return nil, fmt.Errorf("parse %s: request %q: delay_after: %w", r.path, fr.ID, err)
			}
			spec.DelayAfter = d
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("parse %s: %w", r.path, err)
		}
		specs = append(specs, spec)
	}
	return domain.SortByOrder(specs), nil
}

// SaveRequests writes the request file atomically, sorted by Order.
func (r *RequestFile) SaveRequests(specs []domain.RequestSpec) error {
	sorted := domain.SortByOrder(specs)
	doc := requestDoc{Requests: make([]fileRequest, 0, len(sorted))}
	for _, spec := range sorted {
		fr := fileRequest{
			ID:           spec.ID,
			Name:         spec.Name,
			Function:     uint8(spec.Function),
			StartAddress: spec.StartAddress,
			Count:        spec.Count,
			SlaveID:      spec.SlaveID,
			Values:       spec.Values,
			Order:        spec.Order,
			CyclesLimit:  spec.CyclesLimit,
		}
		// Written even when zero so a reload does not swap in the default.
		fr.DelayAfter = spec.DelayAfter.String()
		doc.Requests = append(doc.Requests, fr)
	}

	b, err := toml.Marshal(doc)
	if err != nil {
		return err
	}
	return writeAtomic(r.path, b)
}
