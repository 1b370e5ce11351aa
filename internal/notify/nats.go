package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	nats "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATS publishes each message as JSON on <prefix>.<es id>.<kind>.
type NATS struct {
	log    zerolog.Logger
	conn   Conn
	prefix string
	close  func()
}

// ConnectNATS dials url and returns a publisher owning the connection.
func ConnectNATS(log zerolog.Logger, url, prefix string) (*NATS, error) {
	nc, err := nats.Connect(url, nats.Name("mapeditor-core"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	p := NewNATS(log, nc, prefix)
	p.close = nc.Close
	return p, nil
}

func NewNATS(log zerolog.Logger, conn Conn, prefix string) *NATS {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "mapeditor"
	}
	return &NATS{log: log, conn: conn, prefix: prefix}
}

func (n *NATS) Publish(ctx context.Context, esID string, msgs []Message) error {
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode %s: %w", m.Kind, err)
		}
		if err := n.conn.Publish(n.Subject(esID, m.Kind), data); err != nil {
			return fmt.Errorf("publish %s: %w", m.Kind, err)
		}
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush nats: %w", err)
	}
	n.log.Debug().Str("es_id", esID).Int("messages", len(msgs)).Msg("projection published")
	return nil
}

// Subject returns the subject a message kind for esID is published on.
func (n *NATS) Subject(esID, kind string) string {
	return n.prefix + "." + subjectToken(esID) + "." + kind
}

func (n *NATS) Close() {
	if n.close != nil {
		n.close()
	}
}

func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '>', '\t', '\n':
			return '_'
		}
		return r
	}, s)
}
