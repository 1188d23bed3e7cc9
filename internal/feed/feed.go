// Package feed implements the Feed Publisher: a single mutex-guarded
// GTFS Realtime FeedMessage that atomically replaces its entity list
// on every publish, deduplicating by entity id. Grounded on the
// teacher's mutex-guarded in-memory containers (storage/memory.go,
// downloader/memory.go) and the feed-clear-then-refill idiom from the
// original service's feed_entity_updater.py.
package feed

import (
	"sync"
	"time"

	gtfsproto "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

const realtimeVersion = "2.0"

// Publisher holds the current realtime feed. Readers that need to
// serialize it to bytes MUST go through Bytes(). Update never mutates
// an in-use message in place -- it builds a fresh one and swaps the
// pointer under lock -- so a reader that grabs the current pointer
// under lock and marshals it afterward always sees a complete,
// internally consistent snapshot, never a torn one.
type Publisher struct {
	mu      sync.Mutex
	message *gtfsproto.FeedMessage
}

func New() *Publisher {
	return &Publisher{
		message: &gtfsproto.FeedMessage{
			Header: &gtfsproto.FeedHeader{
				GtfsRealtimeVersion: proto.String(realtimeVersion),
				Timestamp:           proto.Uint64(uint64(time.Now().Unix())),
			},
		},
	}
}

// Update atomically overwrites the feed with entities, deduplicating
// by entity id (first occurrence wins, matching insertion order).
// From any external reader's perspective this is all-or-nothing: the
// lock is held only across this in-memory mutation, never across I/O.
func (p *Publisher) Update(entities []*gtfsproto.FeedEntity) {
	seen := make(map[string]bool, len(entities))
	deduped := make([]*gtfsproto.FeedEntity, 0, len(entities))
	for _, e := range entities {
		id := e.GetId()
		if seen[id] {
			continue
		}
		seen[id] = true
		deduped = append(deduped, e)
	}

	message := &gtfsproto.FeedMessage{
		Header: &gtfsproto.FeedHeader{
			GtfsRealtimeVersion: proto.String(realtimeVersion),
			Timestamp:           proto.Uint64(uint64(time.Now().Unix())),
		},
		Entity: deduped,
	}

	p.mu.Lock()
	p.message = message
	p.mu.Unlock()
}

// Bytes serializes the current feed to the GTFS Realtime wire format.
func (p *Publisher) Bytes() ([]byte, error) {
	p.mu.Lock()
	message := p.message
	p.mu.Unlock()

	return proto.Marshal(message)
}

// EntityCount reports the number of entities in the current feed --
// useful for health/debug endpoints.
func (p *Publisher) EntityCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.message.Entity)
}
