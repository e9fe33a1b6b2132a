/*
Copyright 2025 ChainProof Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package chainproof

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/chainproof/chainproof/model"
)

var eventQueryRetryWindow = 5 * time.Second

// TimelineEntry is one rendered provenance record.
type TimelineEntry struct {
	Kind        model.EventKind `json:"kind"`
	Description string          `json:"description"`
	Actor       string          `json:"actor"`
	Timestamp   time.Time       `json:"timestamp"`
	TxRef       string          `json:"tx_ref"`
	LogIndex    uint64          `json:"log_index"`
}

// Timeline is the full provenance view of one batch: the authoritative
// snapshot, single-hop lineage, and the chronologically ordered event
// history. Incomplete is set when part of the event log could not be
// queried; the entries that were retrievable are still returned.
type Timeline struct {
	BatchID    uint64          `json:"batch_id"`
	Batch      *model.Batch    `json:"batch"`
	Parents    []uint64        `json:"parents"`
	Children   []uint64        `json:"children"`
	Entries    []TimelineEntry `json:"entries"`
	Incomplete bool            `json:"incomplete"`
}

// ResolveBatchID turns an id-or-tracking-code reference into a canonical
// batch id. Digits resolve as an id first, anything else as a tracking code.
func (c *Chainproof) ResolveBatchID(ctx context.Context, ref string) (uint64, error) {
	if id, err := strconv.ParseUint(model.NormalizeTrackingCode(ref), 10, 64); err == nil && id > 0 {
		return id, nil
	}
	return c.store.GetBatchIDByTrackingCode(ctx, ref)
}

// queryEventsWithRetry reads one event kind, retrying transport failures
// independently of the other kinds.
func (c *Chainproof) queryEventsWithRetry(ctx context.Context, kind model.EventKind) ([]model.Event, error) {
	var events []model.Event
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = eventQueryRetryWindow
	operation := func() error {
		var err error
		events, err = c.store.GetEventsByKind(ctx, kind)
		return err
	}
	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	return events, err
}

// GetTimeline reconstructs the provenance of a batch referenced by id or
// tracking code. The six event kinds are queried concurrently; a kind whose
// query keeps failing degrades the timeline instead of failing it.
func (c *Chainproof) GetTimeline(ctx context.Context, ref string) (*Timeline, error) {
	ctx, span := tracer.Start(ctx, "Reconstructing timeline")
	defer span.End()

	id, err := c.ResolveBatchID(ctx, ref)
	if err != nil {
		return nil, logAndRecordError(span, "timeline reference did not resolve: ", err)
	}
	batch, err := c.store.GetBatch(ctx, id)
	if err != nil {
		return nil, logAndRecordError(span, "timeline snapshot read failed: ", err)
	}
	parents, err := c.store.GetParents(ctx, id)
	if err != nil {
		return nil, logAndRecordError(span, "timeline lineage read failed: ", err)
	}
	children, err := c.store.GetChildren(ctx, id)
	if err != nil {
		return nil, logAndRecordError(span, "timeline lineage read failed: ", err)
	}

	timeline := &Timeline{
		BatchID:  id,
		Batch:    batch,
		Parents:  parents,
		Children: children,
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		matched []model.Event
	)
	for _, kind := range model.KnownEventKinds() {
		wg.Add(1)
		go func(kind model.EventKind) {
			defer wg.Done()
			events, queryErr := c.queryEventsWithRetry(ctx, kind)
			mu.Lock()
			defer mu.Unlock()
			if queryErr != nil {
				logrus.Warnf("timeline query for %s events failed, returning partial history: %v", kind, queryErr)
				timeline.Incomplete = true
				return
			}
			for _, event := range events {
				if event.InvolvesBatch(id) {
					matched = append(matched, event)
				}
			}
		}(kind)
	}
	wg.Wait()

	// Ascending by timestamp; ledger commit order breaks ties. Kind carries
	// no temporal meaning and never participates in ordering.
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].LogIndex < matched[j].LogIndex
		}
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	timeline.Entries = make([]TimelineEntry, 0, len(matched))
	for _, event := range matched {
		timeline.Entries = append(timeline.Entries, TimelineEntry{
			Kind:        event.Kind,
			Description: event.Describe(),
			Actor:       event.Actor,
			Timestamp:   event.Timestamp,
			TxRef:       event.TxRef,
			LogIndex:    event.LogIndex,
		})
	}
	return timeline, nil
}

// walkLineage runs a breadth-first closure over one lineage direction. The
// visited set guards against re-reading shared ancestors; cycles are
// structurally impossible since child ids are always minted after their
// parents.
func (c *Chainproof) walkLineage(ctx context.Context, start uint64, hop func(context.Context, uint64) ([]uint64, error)) ([]uint64, error) {
	visited := map[uint64]bool{start: true}
	frontier := []uint64{start}
	var closure []uint64
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		linked, err := hop(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, id := range linked {
			if visited[id] {
				continue
			}
			visited[id] = true
			closure = append(closure, id)
			frontier = append(frontier, id)
		}
	}
	sort.Slice(closure, func(i, j int) bool { return closure[i] < closure[j] })
	return closure, nil
}

// GetAncestors returns every batch the given batch descends from, however
// many hops away.
func (c *Chainproof) GetAncestors(ctx context.Context, id uint64) ([]uint64, error) {
	if _, err := c.store.GetBatch(ctx, id); err != nil {
		return nil, err
	}
	return c.walkLineage(ctx, id, c.store.GetParents)
}

// GetDescendants returns every batch derived from the given batch, however
// many hops away.
func (c *Chainproof) GetDescendants(ctx context.Context, id uint64) ([]uint64, error) {
	if _, err := c.store.GetBatch(ctx, id); err != nil {
		return nil, err
	}
	return c.walkLineage(ctx, id, c.store.GetChildren)
}
