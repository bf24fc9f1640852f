package service

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/qmsworks/qms/internal/models"
)

// lifecycleEvents is the controlled-document state machine.
var lifecycleEvents = fsm.Events{
	{Name: models.EventSubmit, Src: []string{string(models.StatusDraft)}, Dst: string(models.StatusInReview)},
	{Name: models.EventApprove, Src: []string{string(models.StatusInReview)}, Dst: string(models.StatusEffective)},
	{Name: models.EventReject, Src: []string{string(models.StatusInReview)}, Dst: string(models.StatusDraft)},
	{Name: models.EventRetire, Src: []string{string(models.StatusEffective)}, Dst: string(models.StatusRetired)},
	{Name: models.EventRevise, Src: []string{string(models.StatusEffective)}, Dst: string(models.StatusDraft)},
}

// NextStatus applies event to a document in status from and returns the
// resulting status. Disallowed events wrap models.ErrInvalidTransition.
func NextStatus(ctx context.Context, from models.DocumentStatus, event string) (models.DocumentStatus, error) {
	machine := fsm.NewFSM(string(from), lifecycleEvents, fsm.Callbacks{})

	if err := machine.Event(ctx, event); err != nil {
		return "", fmt.Errorf("%w: cannot %s a %s document", models.ErrInvalidTransition, event, from)
	}

	return models.DocumentStatus(machine.Current()), nil
}

// transitionAction is the audit action recorded for a lifecycle event.
func transitionAction(event string) models.AuditAction {
	switch event {
	case models.EventApprove:
		return models.ActionApprove
	case models.EventReject:
		return models.ActionReject
	default:
		return models.ActionUpdate
	}
}
