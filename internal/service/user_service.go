package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
)

// Users is the user directory as seen by the transport.
type Users interface {
	CreateUser(ctx context.Context, name string) (model.Result[model.User], error)
	GetUser(ctx context.Context, id uint64) (model.Result[model.User], error)
	ListUsers(ctx context.Context) (model.Result[[]model.User], error)
	DeleteUser(ctx context.Context, id uint64) (model.Result[model.Deletion], error)
}

type UserService struct {
	Deps
}

func NewUserService(d Deps) *UserService {
	return &UserService{Deps: d.withDefaults()}
}

func (s *UserService) CreateUser(ctx context.Context, name string) (model.Result[model.User], error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Result[model.User]{}, model.InvalidInput("User name must not be empty")
	}
	u := model.User{Name: name}
	if err := s.Users.Create(ctx, &u); err != nil {
		return model.Result[model.User]{}, fail("failed to create user", err)
	}
	s.Log.WithField("user_id", u.ID).Info("user created")
	s.publish(ctx, queue.LifecycleMessage{Type: queue.TypeUserCreated, UserID: u.ID})
	return model.OK(u, "User created successfully"), nil
}

func (s *UserService) GetUser(ctx context.Context, id uint64) (model.Result[model.User], error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return model.Result[model.User]{}, model.NotFound("User %d not found", id)
		}
		return model.Result[model.User]{}, fail("failed to load user", err)
	}
	return model.OK(u, "User found"), nil
}

func (s *UserService) ListUsers(ctx context.Context) (model.Result[[]model.User], error) {
	list, err := s.Users.List(ctx)
	if err != nil {
		return model.Result[[]model.User]{}, fail("failed to list users", err)
	}
	if len(list) == 0 {
		return model.Result[[]model.User]{}, model.NotFound("No users found")
	}
	return model.OK(list, "Users retrieved successfully"), nil
}

// DeleteUser releases every ticket the user holds, removes the user's
// reservations and then the user, all in one transaction.  Tickets are
// credited back per event in ascending event id order.
func (s *UserService) DeleteUser(ctx context.Context, id uint64) (model.Result[model.Deletion], error) {
	var released, removed int
	var touched []uint64
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		released, removed, touched = 0, 0, nil
		if _, err := s.Users.GetByIDForUpdate(ctx, id); err != nil {
			if isNotFound(err) {
				return model.NotFound("User %d not found", id)
			}
			return fail("failed to lock user", err)
		}
		held, err := s.Reservations.ListByUserForUpdate(ctx, id)
		if err != nil {
			return fail("failed to lock reservations", err)
		}

		perEvent := make(map[uint64]int)
		for _, r := range held {
			perEvent[r.EventID] += r.TicketsReserved
		}
		events := make([]uint64, 0, len(perEvent))
		for ev := range perEvent {
			events = append(events, ev)
		}
		sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })

		for _, ev := range events {
			_, err := s.Ledger.Release(ctx, ev, perEvent[ev])
			if isNotFound(err) {
				s.Log.WithFields(logrus.Fields{"event_id": ev, "user_id": id}).Warn("event gone, nothing to release")
				continue
			}
			if err != nil {
				return err
			}
			released += perEvent[ev]
			touched = append(touched, ev)
		}
		for _, r := range held {
			if err := s.Reservations.Delete(ctx, r.ID); err != nil {
				return fail(fmt.Sprintf("failed to delete reservation %d", r.ID), err)
			}
			removed++
		}
		if err := s.Users.Delete(ctx, id); err != nil {
			if isNotFound(err) {
				return model.NotFound("User %d not found", id)
			}
			return fail("failed to delete user", err)
		}
		return nil
	})
	if err != nil {
		return model.Result[model.Deletion]{}, fail("failed to delete user", err)
	}

	s.Log.WithFields(logrus.Fields{
		"user_id": id, "reservations_removed": removed, "released": released, "events": touched,
	}).Info("user deleted")
	s.publish(ctx, queue.LifecycleMessage{Type: queue.TypeUserDeleted, UserID: id, Delta: released, Removed: removed})
	return model.OK(model.Deletion{ID: id, Released: released, Removed: removed},
		fmt.Sprintf("User %d deleted successfully", id)), nil
}
