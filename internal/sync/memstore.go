// ChannelBridge - OTA Channel Manager Synchronization Engine
// Copyright 2026 Adriatic Hotels (adriatichotels)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/adriatichotels/channelbridge

package sync

import (
	"context"
	stdsync "sync"

	"github.com/google/uuid"

	"github.com/adriatichotels/channelbridge/internal/models"
)

// maxProcessedEvents bounds the webhook dedup set. Oldest ids are dropped
// first; an OTA redelivering an event older than the window is re-applied,
// which upserts are safe against.
const maxProcessedEvents = 10000

// MemStore is the in-memory Store used by tests and single-node
// deployments without a backing database.
type MemStore struct {
	mu stdsync.RWMutex

	reservations map[string]*models.Reservation // keyed by internal id, or "ext:"+external id
	syncRecords  map[uuid.UUID]*models.SyncRecord
	conflicts    map[uuid.UUID]*models.ConflictRecord

	processedEvents map[string]struct{}
	eventOrder      []string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		reservations:    make(map[string]*models.Reservation),
		syncRecords:     make(map[uuid.UUID]*models.SyncRecord),
		conflicts:       make(map[uuid.UUID]*models.ConflictRecord),
		processedEvents: make(map[string]struct{}),
	}
}

func reservationKey(r *models.Reservation) string {
	if !r.ID.IsZero() {
		return r.ID.String()
	}
	return "ext:" + r.ExternalID.String()
}

// UpsertReservation stores a copy of the snapshot.
func (s *MemStore) UpsertReservation(_ context.Context, r *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reservations[reservationKey(r)] = &cp
	return nil
}

// GetReservationByExternalID implements Store.
func (s *MemStore) GetReservationByExternalID(_ context.Context, id models.ExternalReservationID) (*models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reservations {
		if r.ExternalID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ReservationsForRoom implements Store.
func (s *MemStore) ReservationsForRoom(_ context.Context, room models.RoomID) ([]*models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Reservation
	for _, r := range s.reservations {
		if r.RoomID == room {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

// SaveSyncRecord implements Store.
func (s *MemStore) SaveSyncRecord(_ context.Context, rec *models.SyncRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.syncRecords[rec.ID] = &cp
	return nil
}

// ListSyncRecords implements Store.
func (s *MemStore) ListSyncRecords(_ context.Context, status models.SyncStatus) ([]*models.SyncRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.SyncRecord
	for _, rec := range s.syncRecords {
		if status == "" || rec.Status == status {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// CountQueued implements Store.
func (s *MemStore) CountQueued(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rec := range s.syncRecords {
		if rec.Status == models.SyncPending || rec.Status == models.SyncRetry {
			n++
		}
	}
	return n, nil
}

// SaveConflict implements Store.
func (s *MemStore) SaveConflict(_ context.Context, c *models.ConflictRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.conflicts[c.ID] = &cp
	return nil
}

// GetConflict implements Store.
func (s *MemStore) GetConflict(_ context.Context, id uuid.UUID) (*models.ConflictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conflicts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// ListConflicts implements Store.
func (s *MemStore) ListConflicts(_ context.Context, activeOnly bool) ([]*models.ConflictRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ConflictRecord
	for _, c := range s.conflicts {
		if !activeOnly || c.Active() {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

// MarkEventProcessed implements Store.
func (s *MemStore) MarkEventProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.processedEvents[eventID]; seen {
		return false, nil
	}
	s.processedEvents[eventID] = struct{}{}
	s.eventOrder = append(s.eventOrder, eventID)
	for len(s.eventOrder) > maxProcessedEvents {
		oldest := s.eventOrder[0]
		s.eventOrder = s.eventOrder[1:]
		delete(s.processedEvents, oldest)
	}
	return true, nil
}

// UnmarkEvent implements Store.
func (s *MemStore) UnmarkEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processedEvents[eventID]; !ok {
		return nil
	}
	delete(s.processedEvents, eventID)
	for i := len(s.eventOrder) - 1; i >= 0; i-- {
		if s.eventOrder[i] == eventID {
			s.eventOrder = append(s.eventOrder[:i], s.eventOrder[i+1:]...)
			break
		}
	}
	return nil
}
