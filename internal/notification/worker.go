package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/goccy/go-json"

	"solar-sync-backend/config"
	"solar-sync-backend/internal/store"
	"solar-sync-backend/internal/syncer"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Payload is the JSON body delivered to subscribed browsers.
type Payload struct {
	Title        string  `json:"title"`
	Body         string  `json:"body"`
	RunID        string  `json:"runId"`
	FailedSites  []int64 `json:"failedSites,omitempty"`
	TotalRecords int     `json:"totalRecords"`
}

// WorkerPool sends sync outcome notifications in the background so a sync run never waits on push delivery.
type WorkerPool struct {
	size    int
	jobs    chan *syncer.SyncSummary
	store   store.SubscriptionRepository
	webpush *webpush.Options
	sender  NotificationSender
	policy  config.PushConfig
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, st store.SubscriptionRepository, policy config.PushConfig) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:  size,
		jobs:  make(chan *syncer.SyncSummary, size),
		store: st,
		webpush: &webpush.Options{
			Subscriber:      policy.Subject,
			VAPIDPublicKey:  policy.PublicKey,
			VAPIDPrivateKey: policy.PrivateKey,
			TTL:             policy.TTL,
		},
		sender: &WebPushSender{},
		policy: policy,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("Notification worker %d started", id)
	for {
		select {
		case summary := <-wp.jobs:
			log.Printf("Notification worker %d processing run %s", id, summary.RunID)
			wp.sendNotificationsForRun(ctx, summary)
		case <-ctx.Done():
			log.Printf("Notification worker %d shutting down", id)
			return
		}
	}
}

// NotifySync queues a finished run when the push policy wants it. A full queue drops the run.
func (wp *WorkerPool) NotifySync(summary *syncer.SyncSummary) {
	if summary == nil || !wp.wants(summary) {
		return
	}
	select {
	case wp.jobs <- summary:
	default:
		log.Printf("Warning: notification queue full, dropping run %s", summary.RunID)
	}
}

// NotifyNow delivers a finished run synchronously when the push policy wants it.
// One-shot commands use it because they exit before a worker could pick the run up.
func (wp *WorkerPool) NotifyNow(ctx context.Context, summary *syncer.SyncSummary) {
	if summary == nil || !wp.wants(summary) {
		return
	}
	wp.sendNotificationsForRun(ctx, summary)
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan *syncer.SyncSummary {
	return wp.jobs
}

func (wp *WorkerPool) wants(summary *syncer.SyncSummary) bool {
	if summary.FailedSites > 0 {
		return wp.policy.NotifyOnError
	}
	return wp.policy.NotifyOnSuccess
}

// sendNotificationsForRun notifies the subscribers of the sites a run concerns:
// the failed sites when there are any, every synced site otherwise.
func (wp *WorkerPool) sendNotificationsForRun(ctx context.Context, summary *syncer.SyncSummary) {
	var siteIDs, failed []int64
	for _, r := range summary.Results {
		if !r.Success {
			failed = append(failed, r.SiteID)
		}
		siteIDs = append(siteIDs, r.SiteID)
	}
	if len(failed) > 0 {
		siteIDs = failed
	}

	subscriptions, err := wp.store.SubscriptionsForSites(ctx, siteIDs)
	if err != nil {
		log.Printf("Error fetching subscriptions for run %s: %v", summary.RunID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(buildPayload(summary, failed))
	if err != nil {
		log.Printf("Error encoding notification for run %s: %v", summary.RunID, err)
		return
	}

	log.Printf("Sending %d notifications for run %s", len(subscriptions), summary.RunID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub.Endpoint, sub.P256DH, sub.Auth, payload)
	}
}

func buildPayload(summary *syncer.SyncSummary, failed []int64) Payload {
	p := Payload{RunID: summary.RunID, FailedSites: failed, TotalRecords: summary.TotalRecords}
	if len(failed) > 0 {
		p.Title = "Solar sync failed"
		p.Body = fmt.Sprintf("%d of %d sites failed to sync", len(failed), summary.TotalSites)
		return p
	}
	p.Title = "Solar sync complete"
	p.Body = fmt.Sprintf("%d sites synced, %d records", summary.TotalSites, summary.TotalRecords)
	return p
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, endpoint, p256dh, auth string, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: endpoint,
		Keys: webpush.Keys{
			P256dh: p256dh,
			Auth:   auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("Error sending notification to %s: %v", endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("Subscription for endpoint %s is expired. Deleting.", endpoint)
		if err := wp.store.DeleteSubscription(ctx, endpoint); err != nil {
			log.Printf("Failed to delete expired subscription %s: %v", endpoint, err)
		}
	}
}
