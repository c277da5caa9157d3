package models

import "time"

const (
	NotificationTaskAssigned   = "task_assigned"
	NotificationTaskReassigned = "task_reassigned"
)

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TaskID    *string   `json:"taskId"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}
