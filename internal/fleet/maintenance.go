package fleet

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"droneFleetManagement/models"
)

// OpenTicket takes an idle drone out of service. A drone in flight cannot be
// pulled into maintenance; the call fails instead of queueing.
func (e *Engine) OpenTicket(ctx context.Context, droneID int64, problem string) (t *models.MaintenanceTicket, err error) {
	ctx, span := e.startSpan(ctx, "OpenTicket", attribute.Int64("drone.id", droneID))
	defer func() { endSpan(span, err) }()

	problem = strings.TrimSpace(problem)
	if problem == "" {
		return nil, fmt.Errorf("%w: problem description is required", ErrValidation)
	}

	unlock := e.locks.Lock(droneID)
	defer unlock()

	_, status, err := e.resolveDrone(ctx, droneID)
	if err != nil {
		return nil, err
	}
	if err := requireAvailable(status, nil); err != nil {
		return nil, err
	}
	t, err = e.store.OpenTicket(ctx, &models.MaintenanceTicket{
		DroneID:    droneID,
		Problem:    problem,
		TicketType: models.TicketTypeRepair,
		RepairType: models.RepairTypePending,
		Status:     models.TicketOpen,
		CreatedAt:  e.now(),
	})
	if err != nil {
		return nil, storeConflict(err)
	}
	e.log(ctx).Info("maintenance ticket opened", "ticket_id", t.ID, "drone_id", droneID)
	return t, nil
}

// StartWork moves an open ticket to in_lucru. Calling it twice is an error.
func (e *Engine) StartWork(ctx context.Context, ticketID int64) (*models.MaintenanceTicket, error) {
	t, err := e.ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(t.DroneID)
	defer unlock()

	ok, err := e.store.StartTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ok {
		cur, err := e.ticket(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: ticket %d is %s", ErrInvalidTransition, ticketID, cur.Status)
	}
	e.log(ctx).Info("maintenance work started", "ticket_id", ticketID, "drone_id", t.DroneID)
	return e.ticket(ctx, ticketID)
}

// CompleteTicket closes an open or in_lucru ticket, records the repair and
// returns the drone to the idle pool with a fresh check date.
func (e *Engine) CompleteTicket(ctx context.Context, ticketID int64, repairType, notes string) (out *models.MaintenanceTicket, err error) {
	ctx, span := e.startSpan(ctx, "CompleteTicket", attribute.Int64("ticket.id", ticketID))
	defer func() { endSpan(span, err) }()

	repairType = strings.TrimSpace(repairType)
	if repairType == "" {
		return nil, fmt.Errorf("%w: repair type is required", ErrValidation)
	}
	t, err := e.ticket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(t.DroneID)
	defer unlock()

	ok, err := e.store.CloseTicket(ctx, ticketID, repairType, strings.TrimSpace(notes), e.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: ticket %d is already closed", ErrInvalidTransition, ticketID)
	}
	e.log(ctx).Info("maintenance ticket closed", "ticket_id", ticketID, "drone_id", t.DroneID, "repair_type", repairType)
	return e.ticket(ctx, ticketID)
}

// ListOpenTickets returns open and in_lucru tickets, oldest first.
func (e *Engine) ListOpenTickets(ctx context.Context) ([]models.MaintenanceTicket, error) {
	return e.store.ListLiveTickets(ctx)
}

func (e *Engine) ticket(ctx context.Context, id int64) (*models.MaintenanceTicket, error) {
	t, err := e.store.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("%w: ticket %d", ErrNotFound, id)
	}
	return t, nil
}
