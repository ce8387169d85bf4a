// websocket/progress.go
package websocket

import (
	"time"

	"case-management-backend/config"

	"go.uber.org/zap"
)

// ImportStage is one of the coarse phases surfaced to subscribers.
type ImportStage string

const (
	StageValidation ImportStage = "validation"
	StageParsing    ImportStage = "parsing"
	StageImporting  ImportStage = "importing"
	StageCompleted  ImportStage = "completed"
	StageFailed     ImportStage = "failed"
)

// ImportProgressEvent is the payload of an import:progress message.
type ImportProgressEvent struct {
	BatchID  string      `json:"batchId"`
	JobID    string      `json:"jobId"`
	Progress int         `json:"progress"`
	Stage    ImportStage `json:"stage"`
	Message  string      `json:"message,omitempty"`
}

// ImportCompletedEvent is the payload of an import:completed message.
type ImportCompletedEvent struct {
	BatchID           string `json:"batchId"`
	JobID             string `json:"jobId"`
	TotalRecords      int    `json:"totalRecords"`
	SuccessfulRecords int    `json:"successfulRecords"`
	FailedRecords     int    `json:"failedRecords"`
	Duration          string `json:"duration"`
}

// ImportFailedEvent is the payload of an import:failed message.
type ImportFailedEvent struct {
	BatchID   string    `json:"batchId"`
	JobID     string    `json:"jobId"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// ImportNotifier publishes import lifecycle events to the batch's
// subscribers. Every publish is fire-and-forget: a missing hub or a slow
// client never blocks or fails the import.
type ImportNotifier struct {
	hub *Hub
}

func NewImportNotifier(hub *Hub) *ImportNotifier {
	return &ImportNotifier{hub: hub}
}

// PublishProgress emits a stage/percentage update for a batch.
func (n *ImportNotifier) PublishProgress(event ImportProgressEvent) {
	n.publish(event.BatchID, WebSocketMessage{
		Type:      MessageTypeImportProgress,
		Payload:   event,
		Timestamp: time.Now(),
		BatchID:   event.BatchID,
	})
}

// PublishCompleted emits the final totals for a successful batch.
func (n *ImportNotifier) PublishCompleted(event ImportCompletedEvent) {
	n.publish(event.BatchID, WebSocketMessage{
		Type:      MessageTypeImportCompleted,
		Payload:   event,
		Timestamp: time.Now(),
		BatchID:   event.BatchID,
	})
}

// PublishFailed emits a failure event for a batch.
func (n *ImportNotifier) PublishFailed(event ImportFailedEvent) {
	n.publish(event.BatchID, WebSocketMessage{
		Type:      MessageTypeImportFailed,
		Payload:   event,
		Timestamp: time.Now(),
		BatchID:   event.BatchID,
	})
}

func (n *ImportNotifier) publish(batchID string, msg WebSocketMessage) {
	if n == nil || n.hub == nil {
		return
	}
	n.hub.BroadcastToBatch(batchID, msg)
	if config.Logger != nil {
		config.Logger.Debug("Import event published",
			zap.String("type", string(msg.Type)),
			zap.String("batchID", batchID),
		)
	}
}
