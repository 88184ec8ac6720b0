package modloader

import (
	"context"
	"slices"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// observerRegistration holds information about a registered observer
type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool
	registeredAt time.Time
}

// RegisterObserver adds an observer to receive session events.
// If eventTypes is empty, the observer receives all events.
func (c *LoadingCoordinator) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrObserverNil
	}
	c.observerMutex.Lock()
	defer c.observerMutex.Unlock()

	eventTypeMap := make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		eventTypeMap[eventType] = true
	}

	if _, exists := c.observers[observer.ObserverID()]; !exists {
		c.observerOrder = append(c.observerOrder, observer.ObserverID())
	}
	c.observers[observer.ObserverID()] = &observerRegistration{
		observer:     observer,
		eventTypes:   eventTypeMap,
		registeredAt: time.Now(),
	}

	c.logger.Debug("Observer registered", "observerID", observer.ObserverID(), "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer. It is idempotent.
func (c *LoadingCoordinator) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrObserverNil
	}
	c.observerMutex.Lock()
	defer c.observerMutex.Unlock()

	if _, exists := c.observers[observer.ObserverID()]; exists {
		delete(c.observers, observer.ObserverID())
		c.observerOrder = slices.DeleteFunc(c.observerOrder, func(id string) bool { return id == observer.ObserverID() })
		c.logger.Debug("Observer unregistered", "observerID", observer.ObserverID())
	}
	return nil
}

// NotifyObservers delivers event to every interested observer, in
// registration order and in the calling goroutine. Observer errors and
// panics are logged and do not affect the session.
func (c *LoadingCoordinator) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}
	if err := ValidateCloudEvent(event); err != nil {
		c.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}

	c.observerMutex.RLock()
	targets := make([]*observerRegistration, 0, len(c.observers))
	for _, id := range c.observerOrder {
		registration := c.observers[id]
		if len(registration.eventTypes) > 0 && !registration.eventTypes[event.Type()] {
			continue
		}
		targets = append(targets, registration)
	}
	c.observerMutex.RUnlock()

	for _, registration := range targets {
		c.deliver(ctx, registration.observer, event)
	}
	return nil
}

func (c *LoadingCoordinator) deliver(ctx context.Context, observer Observer, event cloudevents.Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Observer panicked", "observerID", observer.ObserverID(), "event", event.Type(), "panic", r)
		}
	}()
	if err := observer.OnEvent(ctx, event); err != nil {
		c.logger.Error("Observer error", "observerID", observer.ObserverID(), "event", event.Type(), "error", err)
	}
}

// GetObservers returns information about currently registered observers,
// in registration order.
func (c *LoadingCoordinator) GetObservers() []ObserverInfo {
	c.observerMutex.RLock()
	defer c.observerMutex.RUnlock()

	info := make([]ObserverInfo, 0, len(c.observers))
	for _, id := range c.observerOrder {
		registration := c.observers[id]
		eventTypes := make([]string, 0, len(registration.eventTypes))
		for eventType := range registration.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}
		slices.Sort(eventTypes)
		info = append(info, ObserverInfo{
			ID:           registration.observer.ObserverID(),
			EventTypes:   eventTypes,
			RegisteredAt: registration.registeredAt,
		})
	}
	return info
}

// emit builds and delivers a session event. Nothing is built when no
// observer is registered.
func (c *LoadingCoordinator) emit(ctx context.Context, eventType string, data map[string]any) {
	c.observerMutex.RLock()
	empty := len(c.observers) == 0
	c.observerMutex.RUnlock()
	if empty {
		return
	}

	source := "modloader/" + c.cfg.SessionName
	event := NewCloudEvent(eventType, source, data, nil)
	if err := c.NotifyObservers(ctx, event); err != nil {
		c.logger.Error("Failed to notify observers", "event", eventType, "error", err)
	}
}
