/*
Package events implements the event log of the endpoint.

Every event emitted by the endpoint is assigned sequence number and
persisted so that clients can resume from the last event they have seen,
outbound proposals are additionally indexed by their nonce. Persisted
events are then published to the live subscribers.

DB layout:

	event_<seq>        types.Event
	propose_<nonce>    sequence number of the ProposeEvent
	head_event         sequence number of the next event
*/
package events

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/photon-ccm/photon/keyvaluedb"
	"github.com/photon-ccm/photon/logger"
	"github.com/photon-ccm/photon/types"
)

const (
	eventPrefix   = "event_"
	proposePrefix = "propose_"
)

var headKey = []byte("head_event")

func EventKey(seq uint64) []byte { return keyvaluedb.Key(eventPrefix, binary.BigEndian.AppendUint64(nil, seq)) }

func ProposeKey(nonce uint64) []byte {
	return keyvaluedb.Key(proposePrefix, binary.BigEndian.AppendUint64(nil, nonce))
}

type Log struct {
	mu   sync.Mutex
	db   keyvaluedb.KeyValueDB
	head uint64
	bus  *Bus
	log  *slog.Logger
}

func NewLog(db keyvaluedb.KeyValueDB, bus *Bus, log *slog.Logger) (*Log, error) {
	if db == nil {
		return nil, errors.New("key-value db is nil")
	}
	if bus == nil {
		bus = NewBus(0)
	}
	l := &Log{db: db, bus: bus, log: log}
	if _, err := db.Read(headKey, &l.head); err != nil {
		return nil, fmt.Errorf("reading event log head: %w", err)
	}
	return l, nil
}

// Head returns sequence number the next event will get.
func (l *Log) Head() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head
}

func (l *Log) Bus() *Bus { return l.bus }

/*
Append assigns sequence numbers to the events, persists them in single
transaction and publishes them to subscribers. Returned slice contains the
events with sequence numbers set.
*/
func (l *Log) Append(ctx context.Context, events ...types.Event) ([]types.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	tx, err := l.db.StartTx()
	if err != nil {
		return nil, fmt.Errorf("starting db transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	return l.Commit(ctx, tx, events...)
}

/*
Commit writes the events into "tx" and commits it, so the events are
persisted atomically with whatever else the transaction contains. The
events are published to subscribers only after successful commit. When an
event is invalid nothing is written and the tx is left for the caller to
roll back.
*/
func (l *Log) Commit(ctx context.Context, tx keyvaluedb.DBTransaction, events ...types.Event) ([]types.Event, error) {
	if len(events) == 0 {
		return nil, tx.Commit()
	}
	for i := range events {
		if err := validate(&events[i]); err != nil {
			return nil, fmt.Errorf("invalid event %d: %w", i, err)
		}
	}

	// held until commit so that concurrent transactions don't assign the same sequence numbers
	l.mu.Lock()
	defer l.mu.Unlock()

	seq := l.head
	out := make([]types.Event, len(events))
	for i, e := range events {
		e.Seq = seq
		if err := tx.Write(EventKey(seq), &e); err != nil {
			return nil, fmt.Errorf("writing event %d: %w", seq, err)
		}
		if e.Kind == types.EventPropose {
			if err := tx.Write(ProposeKey(e.Propose.Nonce), seq); err != nil {
				return nil, fmt.Errorf("writing propose index: %w", err)
			}
		}
		out[i] = e
		seq++
	}
	if err := tx.Write(headKey, seq); err != nil {
		return nil, fmt.Errorf("writing event log head: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing events: %w", err)
	}
	l.head = seq

	for _, e := range out {
		l.log.InfoContext(ctx, fmt.Sprintf("event %s", e.Kind), logger.Data(e))
	}
	l.bus.Publish(out...)
	return out, nil
}

// Range returns up to "limit" events starting from sequence number "from".
func (l *Log) Range(from uint64, limit int) ([]types.Event, error) {
	var r []types.Event
	err := keyvaluedb.ForEachWithPrefix(l.db, []byte(eventPrefix), EventKey(from), func(_ []byte, it keyvaluedb.Iterator) error {
		if limit > 0 && len(r) >= limit {
			return keyvaluedb.ErrStopIteration
		}
		var e types.Event
		if err := it.Value(&e); err != nil {
			return fmt.Errorf("reading event: %w", err)
		}
		r = append(r, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Proposals returns up to "limit" outbound proposals starting from nonce "fromNonce".
func (l *Log) Proposals(fromNonce uint64, limit int) ([]types.ProposeEvent, error) {
	var r []types.ProposeEvent
	err := keyvaluedb.ForEachWithPrefix(l.db, []byte(proposePrefix), ProposeKey(fromNonce), func(_ []byte, it keyvaluedb.Iterator) error {
		if limit > 0 && len(r) >= limit {
			return keyvaluedb.ErrStopIteration
		}
		var seq uint64
		if err := it.Value(&seq); err != nil {
			return fmt.Errorf("reading propose index: %w", err)
		}
		var e types.Event
		found, err := l.db.Read(EventKey(seq), &e)
		if err != nil {
			return fmt.Errorf("reading event %d: %w", seq, err)
		}
		if !found || e.Propose == nil {
			return fmt.Errorf("propose index points to missing event %d", seq)
		}
		r = append(r, *e.Propose)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func validate(e *types.Event) error {
	switch e.Kind {
	case types.EventProposalLoaded, types.EventProposalApproved, types.EventProposalExecuted:
		if e.Proposal == nil || e.Propose != nil {
			return fmt.Errorf("%s event must have proposal data only", e.Kind)
		}
	case types.EventPropose:
		if e.Propose == nil || e.Proposal != nil {
			return fmt.Errorf("%s event must have propose data only", e.Kind)
		}
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	return nil
}
