// Package audit persists activity log entries without ever getting in
// the way of the financial write path. Events are handed to a bounded
// queue and written by a background worker; when the sink is down or
// the queue is full, events are dropped and logged, never surfaced.
package audit

import (
	"sync"

	"github.com/google/uuid"
	"github.com/parish-ledger/backend/internal/models"
	"github.com/rs/zerolog/log"
)

// Event describes one auditable action.
type Event struct {
	Actor           uuid.UUID
	Action          models.AuditAction
	ResourceType    string
	ResourceID      uuid.UUID
	RelatedEntities []models.RelatedEntity
	Description     string
	Details         map[string]any
	SourceAddress   string
}

// Recorder writes events to the activity log asynchronously.
type Recorder struct {
	events chan Event
	wg     sync.WaitGroup
}

// NewRecorder starts a recorder with the given queue size.
func NewRecorder(queueSize int) *Recorder {
	r := &Recorder{
		events: make(chan Event, queueSize),
	}

	r.wg.Add(1)
	go r.run()

	return r
}

func (r *Recorder) run() {
	defer r.wg.Done()

	for event := range r.events {
		entry := models.ActivityLog{
			ActorID:         event.Actor,
			Action:          event.Action,
			ResourceType:    event.ResourceType,
			ResourceID:      event.ResourceID,
			RelatedEntities: event.RelatedEntities,
			Description:     event.Description,
			Details:         event.Details,
			SourceAddress:   event.SourceAddress,
		}

		err := models.DB.Create(&entry).Error
		if err != nil {
			log.Error().Err(err).Str("resourceType", event.ResourceType).Msg("activity log entry could not be written")
		}
	}
}

// Record queues an event. It never blocks: when the queue is full, the
// event is dropped and the drop is logged.
func (r *Recorder) Record(event Event) {
	select {
	case r.events <- event:
	default:
		log.Warn().Str("resourceType", event.ResourceType).Str("description", event.Description).Msg("audit queue full, event dropped")
	}
}

// Close drains the queue and stops the worker.
func (r *Recorder) Close() {
	close(r.events)
	r.wg.Wait()
}

// Default is the recorder used by the package level Record function.
// It is set up in main and in test suites.
var Default *Recorder

// Start initializes the default recorder.
func Start(queueSize int) {
	Default = NewRecorder(queueSize)
}

// Record hands an event to the default recorder. Calls before Start are
// dropped with a log line, matching the fire-and-forget contract.
func Record(event Event) {
	if Default == nil {
		log.Debug().Str("resourceType", event.ResourceType).Msg("no audit recorder running, event dropped")
		return
	}

	Default.Record(event)
}

// Close drains and stops the default recorder.
func Close() {
	if Default != nil {
		Default.Close()
		Default = nil
	}
}

// EntryFilter narrows down activity log queries.
type EntryFilter struct {
	EntityType string
	EntityID   uuid.UUID
	Offset     int
	Limit      int
}

// Entries returns activity log entries, newest first. When an entity is
// given, entries are matched both as the main resource and as a related
// entity.
func Entries(filter EntryFilter) ([]models.ActivityLog, int64, error) {
	q := models.DB.Model(&models.ActivityLog{})

	if filter.EntityID != uuid.Nil {
		// Related entities are serialized to JSON, so the relation
		// match is a substring match on the serialized ID
		q = q.Where(
			models.DB.Where(&models.ActivityLog{ResourceType: filter.EntityType, ResourceID: filter.EntityID}).
				Or("related_entities LIKE ?", "%"+filter.EntityID.String()+"%"),
		)
	} else if filter.EntityType != "" {
		q = q.Where(&models.ActivityLog{ResourceType: filter.EntityType})
	}

	var count int64
	err := q.Count(&count).Error
	if err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	var entries []models.ActivityLog
	err = q.Order("created_at DESC").Offset(filter.Offset).Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, count, nil
}
