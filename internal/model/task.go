package model

import "time"

const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Category    string     `json:"category"`
	DueDate     *time.Time `json:"dueDate"`
	CreatedBy   int64      `json:"createdBy"`
	AssignedTo  *int64     `json:"assignedTo"`
	Creator     *UserRef   `json:"creator,omitempty"`
	Assignee    *UserRef   `json:"assignee,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// VisibleTo - создатель и исполнитель видят задачу, остальные нет.
func (t Task) VisibleTo(userID int64) bool {
	return t.CreatedBy == userID || (t.AssignedTo != nil && *t.AssignedTo == userID)
}

// DeletableBy - удалять может только создатель.
func (t Task) DeletableBy(userID int64) bool {
	return t.CreatedBy == userID
}

type TaskFilter struct {
	VisibleTo int64
	Status    *string
	Priority  *string
	Category  *string
}

type TaskStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}
