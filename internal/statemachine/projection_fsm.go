package statemachine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"github.com/sjperalta/roimob-api/internal/models"
)

// ErrInvalidTransition is returned when the projection cannot take the requested event
var ErrInvalidTransition = errors.New("invalid projection transition")

// Projection lifecycle events
const (
	EventPublish = "publish"
	EventArchive = "archive"
	EventRestore = "restore"
)

// ProjectionFSM wraps a projection with its lifecycle state machine:
// draft → published → archived, with archived → draft on restore.
type ProjectionFSM struct {
	projection *models.Projection
	fsm        *fsm.FSM
	now        func() time.Time
}

// NewProjectionFSM creates a new projection state machine
func NewProjectionFSM(p *models.Projection) *ProjectionFSM {
	pf := &ProjectionFSM{projection: p, now: time.Now}

	status := p.Status
	if status == "" {
		status = models.ProjectionStatusDraft
	}

	pf.fsm = fsm.NewFSM(
		status,
		fsm.Events{
			{Name: EventPublish, Src: []string{models.ProjectionStatusDraft}, Dst: models.ProjectionStatusPublished},
			{Name: EventArchive, Src: []string{models.ProjectionStatusDraft, models.ProjectionStatusPublished}, Dst: models.ProjectionStatusArchived},
			{Name: EventRestore, Src: []string{models.ProjectionStatusArchived}, Dst: models.ProjectionStatusDraft},
		},
		fsm.Callbacks{
			"enter_" + models.ProjectionStatusPublished: func(_ context.Context, e *fsm.Event) {
				at := pf.now()
				pf.projection.PublishedAt = &at
			},
			"enter_" + models.ProjectionStatusArchived: func(_ context.Context, e *fsm.Event) {
				at := pf.now()
				pf.projection.ArchivedAt = &at
			},
			"enter_" + models.ProjectionStatusDraft: func(_ context.Context, e *fsm.Event) {
				pf.projection.ArchivedAt = nil
				pf.projection.PublishedAt = nil
			},
		},
	)

	return pf
}

// Publish makes a calculated draft visible to share links and reports
func (p *ProjectionFSM) Publish(ctx context.Context) error {
	if !p.projection.MayPublish() {
		return fmt.Errorf("%w: cannot publish a %s projection without results", ErrInvalidTransition, p.projection.Status)
	}
	return p.fire(ctx, EventPublish)
}

// Archive freezes the projection
func (p *ProjectionFSM) Archive(ctx context.Context) error {
	if !p.projection.MayArchive() {
		return fmt.Errorf("%w: cannot archive a %s projection", ErrInvalidTransition, p.projection.Status)
	}
	return p.fire(ctx, EventArchive)
}

// Restore brings an archived projection back to draft
func (p *ProjectionFSM) Restore(ctx context.Context) error {
	if !p.projection.MayRestore() {
		return fmt.Errorf("%w: cannot restore a %s projection", ErrInvalidTransition, p.projection.Status)
	}
	return p.fire(ctx, EventRestore)
}

// Fire runs the named event, used when the event comes from the request path
func (p *ProjectionFSM) Fire(ctx context.Context, event string) error {
	switch event {
	case EventPublish:
		return p.Publish(ctx)
	case EventArchive:
		return p.Archive(ctx)
	case EventRestore:
		return p.Restore(ctx)
	default:
		return fmt.Errorf("%w: unknown event %q", ErrInvalidTransition, event)
	}
}

func (p *ProjectionFSM) fire(ctx context.Context, event string) error {
	if err := p.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	p.projection.Status = p.fsm.Current()
	return nil
}

// AvailableTransitions lists the events the projection can take now
func (p *ProjectionFSM) AvailableTransitions() []string {
	return p.fsm.AvailableTransitions()
}
