package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"nemt/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationDriverAssigned NotificationType = "DRIVER_ASSIGNED"
	NotificationTripReminder   NotificationType = "TRIP_REMINDER"
	NotificationTripCompleted  NotificationType = "TRIP_COMPLETED"
	NotificationTripCancelled  NotificationType = "TRIP_CANCELLED"
	NotificationWillCallReady  NotificationType = "WILL_CALL_READY"
)

// Notification represents an SMS reminder or push alert to be sent.
// Delivery is fire-and-acknowledge: a failure is reported to the dispatcher
// but never blocks the trip mutation that triggered it.
type Notification struct {
	Type        NotificationType
	RecipientID string // Driver ID or customer phone.
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService handles notification delivery.
type NotificationService struct {
	// In a real deployment this would hold an SMS gateway client (Twilio)
	// and a push client. The dispatch core only depends on the
	// fire-and-acknowledge contract.
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotifyDriverAssigned tells a driver they were put on a trip.
func (s *NotificationService) NotifyDriverAssigned(ctx context.Context, trip *domain.Trip, driver *domain.Driver) error {
	return s.send(ctx, Notification{
		Type:        NotificationDriverAssigned,
		RecipientID: driver.ID,
		Title:       "New Trip Assigned",
		Message:     fmt.Sprintf("Trip %s: pickup at %s", trip.TripNumber, trip.PickupLocation),
		Data: map[string]interface{}{
			"trip_id":        trip.ID,
			"trip_number":    trip.TripNumber,
			"scheduled_time": trip.ScheduledTime,
			"service_level":  trip.ServiceLevel,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyTripReminder sends the rider an SMS reminder ahead of pickup.
func (s *NotificationService) NotifyTripReminder(ctx context.Context, trip *domain.Trip) error {
	if trip.CustomerPhone == "" {
		return nil
	}
	return s.send(ctx, Notification{
		Type:        NotificationTripReminder,
		RecipientID: trip.CustomerPhone,
		Title:       "Ride Reminder",
		Message:     fmt.Sprintf("Your ride %s is scheduled for %s", trip.TripNumber, trip.ScheduledTime.Format("Jan 02 3:04 PM")),
		Data:        map[string]interface{}{"trip_id": trip.ID},
		CreatedAt:   time.Now(),
	})
}

// NotifyTripCompleted confirms completion to the rider.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, trip *domain.Trip) error {
	if trip.CustomerPhone == "" {
		return nil
	}
	return s.send(ctx, Notification{
		Type:        NotificationTripCompleted,
		RecipientID: trip.CustomerPhone,
		Title:       "Trip Completed",
		Message:     fmt.Sprintf("Trip %s is complete. Thank you for riding with us.", trip.TripNumber),
		Data:        map[string]interface{}{"trip_id": trip.ID},
		CreatedAt:   time.Now(),
	})
}

// NotifyTripCancelled tells the affected parties about a cancellation or
// no-show.
func (s *NotificationService) NotifyTripCancelled(ctx context.Context, trip *domain.Trip, reason string) error {
	recipient := trip.DriverID
	if recipient == "" {
		recipient = trip.CustomerPhone
	}
	if recipient == "" {
		return nil
	}
	return s.send(ctx, Notification{
		Type:        NotificationTripCancelled,
		RecipientID: recipient,
		Title:       "Trip Cancelled",
		Message:     fmt.Sprintf("Trip %s was cancelled: %s", trip.TripNumber, reason),
		Data: map[string]interface{}{
			"trip_id": trip.ID,
			"reason":  reason,
		},
		CreatedAt: time.Now(),
	})
}

// NotifyWillCallReady tells the assigned driver the rider has called in.
func (s *NotificationService) NotifyWillCallReady(ctx context.Context, trip *domain.Trip) error {
	if trip.DriverID == "" {
		return nil
	}
	return s.send(ctx, Notification{
		Type:        NotificationWillCallReady,
		RecipientID: trip.DriverID,
		Title:       "Will-Call Ready",
		Message:     fmt.Sprintf("Rider for trip %s is ready for pickup at %s", trip.TripNumber, trip.PickupLocation),
		Data:        map[string]interface{}{"trip_id": trip.ID},
		CreatedAt:   time.Now(),
	})
}

// send delivers a notification (mock implementation).
func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	// A real implementation would push to the SMS gateway here and surface
	// the gateway's error to the dispatcher banner.
	log.Printf("[NOTIFICATION] Type=%s, Recipient=%s, Title=%s, Message=%s",
		notification.Type, notification.RecipientID, notification.Title, notification.Message)
	return nil
}
