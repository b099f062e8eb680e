package consumers

import (
	"context"

	"github.com/pharmatrack/pharmatrack-backend/internal/inventory/repository"
	"github.com/pharmatrack/pharmatrack-backend/pkg/logger"
	"github.com/pharmatrack/pharmatrack-backend/pkg/messaging"
)

// UserEventHandler applies user events to the local user cache (testable without RabbitMQ)
type UserEventHandler struct {
	users  *repository.UserCacheRepository
	logger *logger.Logger
}

// NewUserEventHandler creates a new handler for the user cache
func NewUserEventHandler(users *repository.UserCacheRepository, log *logger.Logger) *UserEventHandler {
	return &UserEventHandler{
		users:  users,
		logger: log,
	}
}

// HandleEvent processes a user event and updates the cache
func (h *UserEventHandler) HandleEvent(ctx context.Context, event *messaging.Event) error {
	switch event.Type {
	case messaging.EventUserCreated:
		return h.handleUserCreated(ctx, event)
	case messaging.EventUserUpdated:
		return h.handleUserUpdated(ctx, event)
	case messaging.EventUserDeleted:
		return h.handleUserDeleted(ctx, event)
	default:
		h.logger.Warn().Str("event_type", event.Type).Msg("unknown event type received")
		return nil
	}
}

// UserConsumer keeps the local user cache in sync with user events from the
// auth service, so ledger rows can show pharmacist and customer names.
type UserConsumer struct {
	consumer *messaging.Consumer
	handler  *UserEventHandler
	logger   *logger.Logger
}

// NewUserConsumer creates a consumer bound to the user events exchange
func NewUserConsumer(rmq *messaging.RabbitMQ, users *repository.UserCacheRepository, log *logger.Logger) (*UserConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "inventory-service.user-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeUserEvents, "user.*"); err != nil {
		return nil, err
	}

	handler := NewUserEventHandler(users, log)

	uc := &UserConsumer{
		consumer: consumer,
		handler:  handler,
		logger:   log,
	}

	consumer.RegisterHandler(messaging.EventUserCreated, handler.handleUserCreated)
	consumer.RegisterHandler(messaging.EventUserUpdated, handler.handleUserUpdated)
	consumer.RegisterHandler(messaging.EventUserDeleted, handler.handleUserDeleted)

	return uc, nil
}

// Start starts consuming user events
func (c *UserConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (h *UserEventHandler) handleUserCreated(ctx context.Context, event *messaging.Event) error {
	var payload messaging.UserCreatedEvent
	if err := event.UnmarshalData(&payload); err != nil {
		return err
	}

	err := h.users.Upsert(ctx, &repository.CachedUser{
		ID:       payload.UserID,
		FullName: payload.FullName(),
		Role:     payload.RoleName,
	})
	if err != nil {
		return err
	}

	h.logger.Debug().Str("user_id", payload.UserID).Msg("User cached")
	return nil
}

func (h *UserEventHandler) handleUserUpdated(ctx context.Context, event *messaging.Event) error {
	var payload messaging.UserUpdatedEvent
	if err := event.UnmarshalData(&payload); err != nil {
		return err
	}

	user, err := h.users.GetByID(ctx, payload.UserID)
	if err != nil {
		// Not cached yet; the next created event or lookup repairs it.
		h.logger.Debug().Str("user_id", payload.UserID).Msg("Update for unknown user ignored")
		return nil
	}

	first, hasFirst := payload.Fields["first_name"].(string)
	last, hasLast := payload.Fields["last_name"].(string)
	if hasFirst && hasLast {
		user.FullName = first + " " + last
	}
	if v, ok := payload.Fields["role_name"].(string); ok {
		user.Role = v
	}

	return h.users.Upsert(ctx, user)
}

func (h *UserEventHandler) handleUserDeleted(ctx context.Context, event *messaging.Event) error {
	var payload messaging.UserDeletedEvent
	if err := event.UnmarshalData(&payload); err != nil {
		return err
	}
	return h.users.Delete(ctx, payload.UserID)
}
