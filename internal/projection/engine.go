package projection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"mapeditor/core-go/internal/boundary"
	"mapeditor/core-go/internal/esdl"
	"mapeditor/core-go/internal/geometry"
	"mapeditor/core-go/internal/notify"
	"mapeditor/core-go/internal/runstore"
	"mapeditor/core-go/internal/synth"
)

// Systems is the model store the engine projects from.
type Systems interface {
	Get(id string) (*esdl.EnergySystem, error)
	Locate(esID, portID string) (esdl.Located, error)
}

// Metrics is implemented by *metrics.Metrics.
type Metrics interface {
	IncProjectionRun(outcome string)
	ObserveProjectionDuration(d time.Duration)
	AddAlerts(n int)
}

type Options struct {
	Systems    Systems
	Boundaries boundary.Service
	Summarizer Summarizer
	Rand       geometry.Rand
	Runs       runstore.Store
	Publisher  notify.Publisher
	Metrics    Metrics

	// BoundariesYear is used when a Mode does not name a year.
	BoundariesYear int
}

func (o Options) withDefaults() Options {
	if o.Summarizer == nil {
		o.Summarizer = BasicSummarizer{}
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Runs == nil {
		o.Runs = runstore.NewMemory()
	}
	if o.BoundariesYear <= 0 {
		o.BoundariesYear = 2019
	}
	return o
}

// Engine projects energy systems onto the map. Runs of the same system are
// serialized; different systems run independently.
type Engine struct {
	log   zerolog.Logger
	opts  Options
	synth *synth.Synthesizer

	mu    sync.Mutex
	locks map[string]*systemLock
}

// systemLock is dropped from Engine.locks once nobody holds or waits on it.
type systemLock struct {
	mu   sync.Mutex
	refs int
}

func NewEngine(log zerolog.Logger, opts Options) *Engine {
	opts = opts.withDefaults()
	return &Engine{
		log:   log,
		opts:  opts,
		synth: synth.New(opts.Rand),
		locks: make(map[string]*systemLock),
	}
}

func (e *Engine) lock(esID string) func() {
	e.mu.Lock()
	l, ok := e.locks[esID]
	if !ok {
		l = &systemLock{}
		e.locks[esID] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, esID)
		}
		e.mu.Unlock()
	}
}

func (e *Engine) observe(outcome string, start time.Time) {
	if e.opts.Metrics == nil {
		return
	}
	e.opts.Metrics.IncProjectionRun(outcome)
	e.opts.Metrics.ObserveProjectionDuration(time.Since(start))
}

// Project runs the full projection of one energy system and publishes the
// resulting messages as one batch. A system that was already processed is
// skipped unless mode.ForceRefresh is set.
func (e *Engine) Project(ctx context.Context, esID string, mode Mode) (*Batch, error) {
	if e.opts.Systems == nil {
		return nil, errors.New("projection: no model store configured")
	}
	start := time.Now()
	defer e.lock(esID)()

	es, err := e.opts.Systems.Get(esID)
	if err != nil {
		e.observe("error", start)
		return nil, err
	}

	processed, err := e.opts.Runs.IsProcessed(ctx, esID)
	if err != nil {
		e.observe("error", start)
		return nil, fmt.Errorf("check processed %s: %w", esID, err)
	}
	if processed && !mode.ForceRefresh {
		e.log.Debug().Str("es_id", esID).Msg("energy system already processed")
		e.observe("skipped", start)
		return &Batch{ESID: esID, Title: titleOf(es), Skipped: true}, nil
	}

	batch, msgs := e.build(ctx, es, mode)

	alerts := 0
	for _, m := range msgs {
		if m.Kind == notify.KindAlert {
			alerts++
		}
	}
	if e.opts.Metrics != nil {
		e.opts.Metrics.AddAlerts(alerts)
	}

	if e.opts.Publisher != nil {
		if err := e.opts.Publisher.Publish(ctx, esID, msgs); err != nil {
			e.observe("error", start)
			return nil, fmt.Errorf("publish %s: %w", esID, err)
		}
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		e.observe("error", start)
		return nil, fmt.Errorf("encode snapshot %s: %w", esID, err)
	}
	if err := e.opts.Runs.Save(ctx, runstore.Snapshot{ESID: esID, Title: batch.Title, Payload: payload}); err != nil {
		e.observe("error", start)
		return nil, fmt.Errorf("save snapshot %s: %w", esID, err)
	}

	e.log.Info().
		Str("es_id", esID).
		Int("features", len(batch.Features)).
		Int("connections", len(batch.Connections)).
		Int("alerts", alerts).
		Dur("took", time.Since(start)).
		Msg("energy system projected")
	e.observe("ok", start)
	return batch, nil
}

func (e *Engine) build(ctx context.Context, es *esdl.EnergySystem, mode Mode) (*Batch, []notify.Message) {
	title := titleOf(es)
	batch := &Batch{ESID: es.ID, Title: title}
	msgs := []notify.Message{
		{Kind: notify.KindCreateLayer, Payload: map[string]any{"es_id": es.ID, "title": title}},
		{Kind: notify.KindSetActiveLayer, Payload: map[string]any{"es_id": es.ID}},
	}

	year := mode.BoundariesYear
	if year <= 0 {
		year = e.opts.BoundariesYear
	}

	root := es.RootArea()
	asm := newAssembler(e.log, es, e.opts.Boundaries, e.synth, year)
	if root != nil {
		asm.run(ctx, root)
	}
	batch.AreaLayer = asm.areas
	batch.BuildingLayer = asm.buildings
	msgs = append(msgs, asm.messages...)
	msgs = append(msgs,
		notify.Message{Kind: notify.KindGeoJSON, Payload: map[string]any{"layer": "area", "features": featuresOf(asm.areas)}},
		notify.Message{Kind: notify.KindGeoJSON, Payload: map[string]any{"layer": "building", "features": featuresOf(asm.buildings)}},
		notify.Message{Kind: notify.KindCarrierList, Payload: map[string]any{"es_id": es.ID, "carriers": nonNil(es.Carriers)}},
	)
	if len(es.Sectors) > 0 {
		msgs = append(msgs, notify.Message{Kind: notify.KindSectorList, Payload: map[string]any{"es_id": es.ID, "sectors": es.Sectors}})
	}
	if root != nil {
		if kpis := e.opts.Summarizer.AreaKPIs(es, root); len(kpis) > 0 {
			scope := root.Name
			if scope == "" {
				scope = title
			}
			msgs = append(msgs, notify.Message{Kind: notify.KindKPIs, Payload: map[string]any{"es_id": es.ID, "scope": scope, "kpis": kpis}})
		}
	}

	f := newFlattener(e.log, es, e.locator(es.ID), e.opts.Summarizer)
	if root != nil {
		if _, err := e.synth.Fallback(es, root.ID); err != nil {
			e.log.Debug().Err(err).Str("es_id", es.ID).Msg("no coordinates to place missing geometries around")
		}
		f.area(root, mode.EditorView, 0)
	}
	batch.Result = f.res
	for _, a := range f.res.Alerts {
		msgs = append(msgs, notify.Message{Kind: notify.KindAlert, Payload: map[string]any{"message": a}})
	}

	msgs = append(msgs,
		notify.Message{Kind: notify.KindAddBuildingObjects, Payload: map[string]any{"es_id": es.ID, "buildingFeatures": nonNil(batch.Buildings), "zoom": false}},
		notify.Message{Kind: notify.KindAddESDLObjects, Payload: map[string]any{"es_id": es.ID, "assetPotentialFeatures": nonNil(batch.Features), "zoom": true}},
		notify.Message{Kind: notify.KindAreaBuildingList, Payload: map[string]any{"es_id": es.ID, "breadcrumbs": nonNil(batch.Breadcrumbs)}},
		notify.Message{Kind: notify.KindAddConnections, Payload: map[string]any{"es_id": es.ID, "toBuilding": false, "connections": nonNil(batch.Connections)}},
	)
	return batch, msgs
}

// BuildingView projects a single building as its editor shows it: the
// building is the top level and every link is drawn.
func (e *Engine) BuildingView(_ context.Context, esID, buildingID string) (*BuildingInfo, error) {
	if e.opts.Systems == nil {
		return nil, errors.New("projection: no model store configured")
	}
	defer e.lock(esID)()

	es, err := e.opts.Systems.Get(esID)
	if err != nil {
		return nil, err
	}
	b := es.Asset(buildingID)
	if b == nil || !b.IsBuilding() {
		return nil, fmt.Errorf("%w: %q", ErrNotBuilding, buildingID)
	}

	e.synth.InBuilding(es, b.ID)
	f := newFlattener(e.log, es, e.locator(esID), e.opts.Summarizer)
	f.building(b, true, 0)
	if e.opts.Metrics != nil {
		e.opts.Metrics.AddAlerts(len(f.res.Alerts))
	}
	return &BuildingInfo{ID: b.ID, Result: f.res}, nil
}

func (e *Engine) locator(esID string) LocateFunc {
	return func(portID string) (esdl.Located, error) {
		return e.opts.Systems.Locate(esID, portID)
	}
}

func titleOf(es *esdl.EnergySystem) string {
	if es.Name == "" {
		return untitled
	}
	return es.Name
}

func featuresOf(fc *geojson.FeatureCollection) []*geojson.Feature {
	if fc == nil || fc.Features == nil {
		return []*geojson.Feature{}
	}
	return fc.Features
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
