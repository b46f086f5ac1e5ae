package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/memoria/core/internal/domain/entities"
	"github.com/memoria/core/internal/infrastructure/logger"
	"github.com/memoria/core/internal/ports"
)

// TaskService resolves and saves the task list of a day
type TaskService struct {
	taskRepo ports.TaskRepository
	logger   *logger.Logger
	parser   *when.Parser
	now      func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, logger *logger.Logger) *TaskService {
	parser := when.New(nil)
	parser.Add(en.All...)
	parser.Add(common.All...)

	return &TaskService{
		taskRepo: taskRepo,
		logger:   logger.WithComponent("tasks"),
		parser:   parser,
		now:      time.Now,
	}
}

// ResolveTasksForDate returns the tasks visible on date. An explicitly emptied
// day is terminal; a day without live tasks inherits from the nearest earlier
// day that has any task rows.
func (s *TaskService) ResolveTasksForDate(ctx context.Context, date string) (*entities.ResolvedDay, error) {
	if _, err := entities.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: %q", err, date)
	}

	state, err := s.taskRepo.GetDayState(ctx, date)
	if err != nil {
		return nil, err
	}
	if state != nil && state.IsExplicitlyEmpty {
		return &entities.ResolvedDay{Date: date, Source: entities.DaySourceEmpty, Tasks: []entities.Task{}}, nil
	}

	stored, err := s.taskRepo.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if visible := entities.FilterVisible(stored, date); len(visible) > 0 {
		return &entities.ResolvedDay{Date: date, Source: entities.DaySourceExplicit, Tasks: visible}, nil
	}

	previous, err := s.taskRepo.LatestDateBefore(ctx, date)
	if err != nil {
		return nil, err
	}
	if previous == "" {
		return &entities.ResolvedDay{Date: date, Source: entities.DaySourceNone, Tasks: []entities.Task{}}, nil
	}

	inherited, err := s.taskRepo.ListByDate(ctx, previous)
	if err != nil {
		return nil, err
	}

	// inherited tasks are shown under the query date but stay stored under their own
	tasks := entities.FilterVisible(inherited, date)
	for i := range tasks {
		tasks[i].Date = date
	}

	return &entities.ResolvedDay{
		Date:          date,
		Source:        entities.DaySourceInherited,
		InheritedFrom: previous,
		Tasks:         tasks,
	}, nil
}

// SaveTasksForDate replaces everything stored for date with tasks. An empty
// list marks the day explicitly empty.
func (s *TaskService) SaveTasksForDate(ctx context.Context, date string, tasks []entities.Task) (*entities.ResolvedDay, error) {
	if _, err := entities.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: %q", err, date)
	}

	prepared, err := prepareTasks(date, tasks)
	if err != nil {
		return nil, err
	}

	if err := s.taskRepo.ReplaceDay(ctx, date, prepared); err != nil {
		s.logger.Errorw("Failed to save tasks", "date", date, "count", len(prepared), "error", err)
		return nil, fmt.Errorf("save tasks for %s: %w", date, err)
	}

	s.logger.Infow("Tasks saved", "date", date, "count", len(prepared))

	return s.ResolveTasksForDate(ctx, date)
}

func prepareTasks(date string, tasks []entities.Task) ([]entities.Task, error) {
	prepared := make([]entities.Task, 0, len(tasks))
	seen := make(map[string]struct{}, len(tasks))

	for i, task := range tasks {
		task.Content = strings.TrimSpace(task.Content)
		if task.Content == "" {
			return nil, fmt.Errorf("%w: task %d has no content", entities.ErrValidation, i)
		}
		if task.DeletedOn != nil {
			if *task.DeletedOn == "" {
				task.DeletedOn = nil
			} else if _, err := entities.ParseDate(*task.DeletedOn); err != nil {
				return nil, fmt.Errorf("%w: task %d deleted_on %q", entities.ErrValidation, i, *task.DeletedOn)
			}
		}
		if task.ID == "" {
			task.ID = uuid.NewString()
		}
		if _, dup := seen[task.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate task id %q", entities.ErrValidation, task.ID)
		}
		seen[task.ID] = struct{}{}

		task.Date = date
		prepared = append(prepared, task)
	}

	return prepared, nil
}

// ResolveDate turns a request date into YYYY-MM-DD. Blank means today; besides
// the canonical layout it accepts phrases such as "yesterday" or "next monday".
func (s *TaskService) ResolveDate(input string) (string, error) {
	input = strings.TrimSpace(input)
	now := s.now()

	if input == "" {
		return now.Format(entities.DateLayout), nil
	}
	if _, err := entities.ParseDate(input); err == nil {
		return input, nil
	}

	result, err := s.parser.Parse(input, now)
	if err != nil || result == nil {
		return "", fmt.Errorf("%w: %q", entities.ErrInvalidDate, input)
	}

	return result.Time.Format(entities.DateLayout), nil
}
