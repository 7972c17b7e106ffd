package service

import (
	"sort"

	"task-manager/internal/model"
)

// Less orders incomplete tasks before completed ones, then by status
// ascending, then newest first.
func Less(a, b model.Task) bool {
	if a.Completed != b.Completed {
		return !a.Completed
	}
	if ra, rb := a.Status.Rank(), b.Status.Rank(); ra != rb {
		return ra < rb
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// SortTasks sorts tasks in place. Ties keep their incoming order.
func SortTasks(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return Less(tasks[i], tasks[j])
	})
}
