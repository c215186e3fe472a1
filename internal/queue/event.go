// Package queue defines message payloads exchanged over the message broker
// and the background consumer that drains them.
package queue

// ActivityQueueName is the single queue carrying user activity events.
const ActivityQueueName = "user.activity"

// Event kinds published to the activity queue.
const (
	EventUserRegistered = "user.registered"
	EventWatchlistAdded = "watchlist.added"
)

// UserActivityEvent is published when a user registers or adds a movie to
// their watchlist. It carries enough information for downstream consumers
// to log or trigger analytics without querying the primary database.
type UserActivityEvent struct {
	Kind       string `json:"kind"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	MovieID    string `json:"movie_id,omitempty"`
	MovieTitle string `json:"movie_title,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
