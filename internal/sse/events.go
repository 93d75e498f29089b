// Package sse implements Server-Sent Events for task progress and catalog updates.
package sse

import (
	"time"

	"github.com/aresapp/ares-server/internal/domain"
)

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventTaskCreated is sent when a wizard or batch task is registered.
	EventTaskCreated EventType = "task.created"
	// EventTaskProgress carries a progress or status change of a task.
	EventTaskProgress EventType = "task.progress"
	// EventTaskError is sent when a failure is recorded against a task.
	EventTaskError EventType = "task.error"
	// EventTaskFinished is sent once a task reaches done or failed.
	EventTaskFinished EventType = "task.finished"

	// EventWizardStage is sent when a wizard run enters a new state.
	EventWizardStage EventType = "wizard.stage"

	// EventGameAdded is sent after a game's tracks are persisted.
	EventGameAdded EventType = "game.added"
	// EventGameDeleted is sent after a game is rolled back or removed.
	EventGameDeleted EventType = "game.deleted"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`

	// TaskID restricts delivery to clients following that task (or all tasks).
	TaskID string `json:"-"`
}

// TaskEventData is the data payload for task events.
type TaskEventData struct {
	Task domain.Task `json:"task"`
}

// TaskErrorEventData is the data payload for task error events.
type TaskErrorEventData struct {
	TaskID  string             `json:"task_id"`
	Failure domain.TaskFailure `json:"failure"`
}

// WizardStageEventData is the data payload for wizard stage events.
type WizardStageEventData struct {
	TaskID   string `json:"task_id,omitempty"`
	GameName string `json:"game_name,omitempty"`
	GameID   int64  `json:"game_id,omitempty"`
	Stage    string `json:"stage"`
	MediaID  string `json:"media_id,omitempty"`
}

// GameEventData is the data payload for catalog game events.
type GameEventData struct {
	GameID  int64  `json:"game_id"`
	Name    string `json:"name,omitempty"`
	AlbumID int64  `json:"album_id,omitempty"`
	Tracks  int    `json:"tracks,omitempty"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

func newTaskEvent(t EventType, task domain.Task) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		Data:      TaskEventData{Task: task},
		TaskID:    task.ID,
	}
}

// NewTaskCreatedEvent creates a task.created event.
func NewTaskCreatedEvent(task domain.Task) Event {
	return newTaskEvent(EventTaskCreated, task)
}

// NewTaskProgressEvent creates a task.progress event.
func NewTaskProgressEvent(task domain.Task) Event {
	return newTaskEvent(EventTaskProgress, task)
}

// NewTaskFinishedEvent creates a task.finished event.
func NewTaskFinishedEvent(task domain.Task) Event {
	return newTaskEvent(EventTaskFinished, task)
}

// NewTaskErrorEvent creates a task.error event.
func NewTaskErrorEvent(taskID string, failure domain.TaskFailure) Event {
	return Event{
		Type:      EventTaskError,
		Timestamp: time.Now(),
		Data:      TaskErrorEventData{TaskID: taskID, Failure: failure},
		TaskID:    taskID,
	}
}

// NewWizardStageEvent creates a wizard.stage event.
func NewWizardStageEvent(data WizardStageEventData) Event {
	return Event{
		Type:      EventWizardStage,
		Timestamp: time.Now(),
		Data:      data,
		TaskID:    data.TaskID,
	}
}

// NewGameAddedEvent creates a game.added event.
func NewGameAddedEvent(gameID int64, name string, albumID int64, tracks int) Event {
	return Event{
		Type:      EventGameAdded,
		Timestamp: time.Now(),
		Data:      GameEventData{GameID: gameID, Name: name, AlbumID: albumID, Tracks: tracks},
	}
}

// NewGameDeletedEvent creates a game.deleted event.
func NewGameDeletedEvent(gameID int64) Event {
	return Event{
		Type:      EventGameDeleted,
		Timestamp: time.Now(),
		Data:      GameEventData{GameID: gameID},
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	now := time.Now()
	return Event{
		Type:      EventHeartbeat,
		Timestamp: now,
		Data:      HeartbeatEventData{ServerTime: now},
	}
}
