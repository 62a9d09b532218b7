package service

import "taskmanager/internal/domain/models"

// CanModify: изменять задачу могут автор и текущий исполнитель.
// Роль пользователя здесь не учитывается.
func CanModify(user *models.User, task *models.Task) bool {
	if user == nil || task == nil {
		return false
	}
	if task.CreatedByID == user.ID {
		return true
	}
	return task.AssignedToID != nil && *task.AssignedToID == user.ID
}

// CanDelete: удалять задачу может только автор.
func CanDelete(user *models.User, task *models.Task) bool {
	if user == nil || task == nil {
		return false
	}
	return task.CreatedByID == user.ID
}
