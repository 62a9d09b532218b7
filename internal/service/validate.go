package service

import (
	"strings"
	"time"

	"taskmanager/internal/domain/errors"
	"taskmanager/internal/domain/models"

	"github.com/go-playground/validator"
)

var valid = validator.New()

func validateTaskRequest(req *models.TaskRequest, requireStatus bool) (*time.Time, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.ErrInvalidTitle
	}
	if err := valid.Struct(req); err != nil {
		return nil, validationErrorToError(err)
	}
	if requireStatus && req.Status == "" {
		return nil, errors.ErrInvalidStatus
	}
	if req.AssignedToID != nil && strings.TrimSpace(*req.AssignedToID) == "" {
		return nil, errors.ErrInvalidID
	}
	if req.DueDate == "" {
		return nil, nil
	}
	due, err := time.Parse(models.DateLayout, req.DueDate)
	if err != nil {
		return nil, errors.ErrValidationFailed
	}
	return &due, nil
}

func validateRegisterRequest(req *models.RegisterRequest) error {
	if err := valid.Struct(req); err != nil {
		return validationErrorToError(err)
	}
	return nil
}

func validateLoginRequest(req *models.LoginRequest) error {
	if err := valid.Struct(req); err != nil {
		return validationErrorToError(err)
	}
	return nil
}

// ParseTaskFilter разбирает параметры поиска. Пустые значения фильтр не задают.
func ParseTaskFilter(search, status, priority, assignee string) (models.TaskFilter, error) {
	var filter models.TaskFilter
	if search != "" {
		filter.Search = &search
	}
	if status != "" {
		st := models.TaskStatus(strings.ToUpper(status))
		if !st.Valid() {
			return filter, errors.ErrInvalidStatus
		}
		filter.Status = &st
	}
	if priority != "" {
		pr := models.Priority(strings.ToUpper(priority))
		if !pr.Valid() {
			return filter, errors.ErrInvalidPriority
		}
		filter.Priority = &pr
	}
	if assignee != "" {
		filter.AssigneeID = &assignee
	}
	return filter, nil
}

func validationErrorToError(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, verr := range verrs {
			switch verr.Field() {
			case "Email":
				return errors.ErrInvalidEmail
			case "Password":
				return errors.ErrInvalidPassword
			case "FirstName", "LastName":
				return errors.ErrInvalidName
			case "Status":
				return errors.ErrInvalidStatus
			case "Priority":
				return errors.ErrInvalidPriority
			case "Title":
				return errors.ErrInvalidTitle
			case "Description":
				return errors.ErrInvalidDescription
			}
		}
	}
	return errors.ErrValidationFailed
}
