package models

type StatusCount struct {
	Status TaskStatus `json:"status"`
	Count  int        `json:"count"`
}

type DateCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type UserCount struct {
	User  string `json:"user"`
	Count int    `json:"count"`
}

// TaskMetrics is the aggregate view over a set of tasks. TasksByUser is only
// filled for the admin variant.
type TaskMetrics struct {
	TotalTasks     int           `json:"totalTasks"`
	CompletedTasks int           `json:"completedTasks"`
	PendingTasks   int           `json:"pendingTasks"`
	TasksByStatus  []StatusCount `json:"tasksByStatus"`
	TasksByDate    []DateCount   `json:"tasksByDate"`
	TasksByUser    []UserCount   `json:"tasksByUser,omitempty"`
}
