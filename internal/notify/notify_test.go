package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	flushed  int
	pubErr   error
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	if f.pubErr != nil {
		return f.pubErr
	}
	f.subjects = append(f.subjects, subj)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error {
	f.flushed++
	return nil
}

func TestNATS_publishesEachMessageInOrder(t *testing.T) {
	conn := &fakeConn{}
	p := NewNATS(zerolog.New(io.Discard), conn, "maps.")

	msgs := []Message{
		{Kind: KindCreateLayer, Payload: map[string]any{"es_id": "a.b", "title": "x"}},
		{Kind: KindAlert, Payload: map[string]any{"message": "hello"}},
	}
	if err := p.Publish(context.Background(), "a.b", msgs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(conn.subjects) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(conn.subjects))
	}
	if conn.subjects[0] != "maps.a_b.create_new_esdl_layer" || conn.subjects[1] != "maps.a_b.alert" {
		t.Fatalf("unexpected subjects: %v", conn.subjects)
	}
	if conn.flushed != 1 {
		t.Fatalf("expected one flush, got %d", conn.flushed)
	}

	var decoded Message
	if err := json.Unmarshal(conn.payloads[1], &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.Kind != KindAlert || decoded.Payload["message"] != "hello" {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
}

func TestNATS_propagatesPublishErrors(t *testing.T) {
	conn := &fakeConn{pubErr: errors.New("no responders")}
	p := NewNATS(zerolog.New(io.Discard), conn, "")
	err := p.Publish(context.Background(), "es", []Message{{Kind: KindAlert}})
	if err == nil || !errors.Is(err, conn.pubErr) {
		t.Fatalf("expected wrapped publish error, got %v", err)
	}
	if p.Subject("es", KindAlert) != "mapeditor.es.alert" {
		t.Fatalf("expected default prefix, got %q", p.Subject("es", KindAlert))
	}
}

func TestRecorderAndMulti(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	m := Multi{a, nil, b}
	batch := []Message{{Kind: KindKPIs}}
	if err := m.Publish(context.Background(), "es", batch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	batch[0].Kind = "mutated"

	for _, r := range []*Recorder{a, b} {
		got := r.Batches("es")
		if len(got) != 1 || len(got[0]) != 1 || got[0][0].Kind != KindKPIs {
			t.Fatalf("unexpected recorded batches: %+v", got)
		}
	}
}
