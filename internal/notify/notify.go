package notify

import (
	"context"
	"sync"
)

// Message kinds understood by the map client.
const (
	KindCreateLayer        = "create_new_esdl_layer"
	KindSetActiveLayer     = "set_active_layer_id"
	KindGeoJSON            = "geojson"
	KindCarrierList        = "carrier_list"
	KindSectorList         = "sector_list"
	KindKPIs               = "kpis"
	KindAddBuildingObjects = "add_building_objects"
	KindAddESDLObjects     = "add_esdl_objects"
	KindAreaBuildingList   = "area_bld_list"
	KindAddConnections     = "add_connections"
	KindAreaBoundary       = "area_boundary"
	KindPotentialBoundary  = "pot_boundary"
	KindAlert              = "alert"
)

// Message is one outbound notification. Payload keys are part of the
// client contract.
type Message struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

// Publisher delivers the messages of one projection run, in order.
type Publisher interface {
	Publish(ctx context.Context, esID string, msgs []Message) error
}

// Recorder keeps published batches in memory, keyed by energy system.
type Recorder struct {
	mu      sync.Mutex
	batches map[string][][]Message
}

func NewRecorder() *Recorder {
	return &Recorder{batches: make(map[string][][]Message)}
}

func (r *Recorder) Publish(_ context.Context, esID string, msgs []Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]Message, len(msgs))
	copy(cp, msgs)
	r.batches[esID] = append(r.batches[esID], cp)
	return nil
}

// Batches returns every batch published for esID.
func (r *Recorder) Batches(esID string) [][]Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Message(nil), r.batches[esID]...)
}

// Multi fans a batch out to several publishers and stops at the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, esID string, msgs []Message) error {
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, esID, msgs); err != nil {
			return err
		}
	}
	return nil
}
