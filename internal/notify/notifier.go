// Package notify dispatches fire-and-forget events toward the external
// notification delivery collaborator.
package notify

import (
	"encoding/json"
	"time"

	"shramsetu/internal/store"

	"github.com/sirupsen/logrus"
)

// Pub/sub channels consumed by the external push-delivery service.
const (
	LocationUpdateChannel = "notify:location_update"
	CriticalAlertChannel  = "notify:critical_alert"
)

// AlertDetails carries the verification context attached to a critical
// alert.
type AlertDetails struct {
	VerificationID string    `json:"verification_id"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	DistanceM      float64   `json:"distance_m"`
	FlagType       string    `json:"flag_type"`
	FlagSeverity   string    `json:"flag_severity"`
	Detail         string    `json:"detail,omitempty"`
}

// Notifier is the contract toward the notification collaborator. Both calls
// are fire-and-forget: failures are logged by implementations and never
// propagated, so a broken notification path cannot stall verification.
type Notifier interface {
	RequestLocationUpdate(workerID string, sessionID uint)
	SendCriticalAlert(workerID string, sessionID uint, details AlertDetails)
}

// locationUpdateEvent is the wire shape published on LocationUpdateChannel.
type locationUpdateEvent struct {
	WorkerID    string    `json:"worker_id"`
	SessionID   uint      `json:"session_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// criticalAlertEvent is the wire shape published on CriticalAlertChannel.
type criticalAlertEvent struct {
	WorkerID  string       `json:"worker_id"`
	SessionID uint         `json:"session_id"`
	RaisedAt  time.Time    `json:"raised_at"`
	Details   AlertDetails `json:"details"`
}

// StoreNotifier publishes notification events on the shared store's pub/sub
// channels. The delivery collaborator (push gateway, SMS bridge) subscribes
// on its own node.
type StoreNotifier struct {
	store store.Store
}

// NewStoreNotifier creates a store-backed notifier.
func NewStoreNotifier(s store.Store) *StoreNotifier {
	return &StoreNotifier{store: s}
}

// RequestLocationUpdate asks the worker's device for a fresh location fix.
func (n *StoreNotifier) RequestLocationUpdate(workerID string, sessionID uint) {
	event := locationUpdateEvent{
		WorkerID:    workerID,
		SessionID:   sessionID,
		RequestedAt: time.Now(),
	}
	n.publish(LocationUpdateChannel, event)
	logrus.WithFields(logrus.Fields{
		"worker_id":  workerID,
		"session_id": sessionID,
	}).Info("Requested location update from worker device")
}

// SendCriticalAlert notifies officials of a high-risk verification outcome.
func (n *StoreNotifier) SendCriticalAlert(workerID string, sessionID uint, details AlertDetails) {
	event := criticalAlertEvent{
		WorkerID:  workerID,
		SessionID: sessionID,
		RaisedAt:  time.Now(),
		Details:   details,
	}
	n.publish(CriticalAlertChannel, event)
	logrus.WithFields(logrus.Fields{
		"worker_id":  workerID,
		"session_id": sessionID,
		"severity":   details.FlagSeverity,
		"distance_m": details.DistanceM,
	}).Warn("Critical verification alert raised")
}

// publish encodes and publishes an event, logging failures without
// propagating them.
func (n *StoreNotifier) publish(channel string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).WithField("channel", channel).Error("Failed to encode notification event")
		return
	}
	if err := n.store.Publish(channel, payload); err != nil {
		logrus.WithError(err).WithField("channel", channel).Error("Failed to publish notification event")
	}
}
