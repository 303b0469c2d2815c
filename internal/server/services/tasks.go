package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/common"
	"github.com/dmitrijs2005/gophtasks/internal/logging"
	"github.com/dmitrijs2005/gophtasks/internal/server/models"
	"github.com/dmitrijs2005/gophtasks/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophtasks/internal/timex"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// metricsWindowDays is the length of the trailing daily histogram, today included.
const metricsWindowDays = 7

// CreateTaskInput is the body of a create request.
type CreateTaskInput struct {
	Title       string             `json:"title" validate:"required,max=255"`
	Description *string            `json:"description" validate:"omitempty,max=1000"`
	Status      *models.TaskStatus `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
}

// UpdateTaskInput is a partial update; absent fields are kept.
type UpdateTaskInput struct {
	Title       *string            `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string            `json:"description" validate:"omitempty,max=1000"`
	Status      *models.TaskStatus `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED"`
}

func (in UpdateTaskInput) patch() models.TaskPatch {
	return models.TaskPatch{Title: in.Title, Description: in.Description, Status: in.Status}
}

// TaskService is the task store. Owner-scoped methods never touch rows of
// another user; the unscoped variants back the admin routes.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	validate    *validator.Validate
	logger      logging.Logger
	now         func() time.Time
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *TaskService {
	return &TaskService{
		db:          db,
		repomanager: m,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "TaskService"),
		now:         time.Now,
	}
}

// Create stores a task owned by ownerID. The status defaults to PENDING.
func (s *TaskService) Create(ctx context.Context, ownerID string, in CreateTaskInput) (*models.Task, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       in.Title,
		Description: in.Description,
		Status:      models.TaskStatusPending,
		UserID:      ownerID,
	}
	if in.Status != nil {
		task.Status = *in.Status
	}

	created, err := s.repomanager.Tasks(s.db).Create(ctx, task)
	if err != nil {
		return nil, s.internal(ctx, "error creating task", err, "user_id", ownerID)
	}

	s.logger.Info(ctx, "task created", "task_id", created.ID, "user_id", ownerID)
	return created, nil
}

func (s *TaskService) FindAllByOwner(ctx context.Context, ownerID string) ([]*models.Task, error) {
	return s.list(ctx, ownerID)
}

func (s *TaskService) FindAll(ctx context.Context) ([]*models.Task, error) {
	return s.list(ctx, "")
}

func (s *TaskService) FindOneByOwner(ctx context.Context, id, ownerID string) (*models.Task, error) {
	return s.get(ctx, id, ownerID)
}

func (s *TaskService) FindOne(ctx context.Context, id string) (*models.Task, error) {
	return s.get(ctx, id, "")
}

func (s *TaskService) UpdateByOwner(ctx context.Context, id, ownerID string, in UpdateTaskInput) (*models.Task, error) {
	return s.update(ctx, id, ownerID, in)
}

func (s *TaskService) Update(ctx context.Context, id string, in UpdateTaskInput) (*models.Task, error) {
	return s.update(ctx, id, "", in)
}

func (s *TaskService) RemoveByOwner(ctx context.Context, id, ownerID string) error {
	return s.remove(ctx, id, ownerID)
}

func (s *TaskService) Remove(ctx context.Context, id string) error {
	return s.remove(ctx, id, "")
}

// Metrics aggregates the tasks of ownerID.
func (s *TaskService) Metrics(ctx context.Context, ownerID string) (*models.TaskMetrics, error) {
	return s.metrics(ctx, ownerID, false)
}

// AdminMetrics aggregates all tasks and adds the per-user breakdown.
func (s *TaskService) AdminMetrics(ctx context.Context) (*models.TaskMetrics, error) {
	return s.metrics(ctx, "", true)
}

func (s *TaskService) list(ctx context.Context, ownerID string) ([]*models.Task, error) {
	result, err := s.repomanager.Tasks(s.db).List(ctx, ownerID)
	if err != nil {
		return nil, s.internal(ctx, "error listing tasks", err, "user_id", ownerID)
	}
	return result, nil
}

func (s *TaskService) get(ctx context.Context, id, ownerID string) (*models.Task, error) {
	task, err := s.repomanager.Tasks(s.db).Get(ctx, id, ownerID)
	if err != nil {
		return nil, s.notFoundOrInternal(ctx, "error reading task", err, id)
	}
	return task, nil
}

func (s *TaskService) update(ctx context.Context, id, ownerID string, in UpdateTaskInput) (*models.Task, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	task, err := s.repomanager.Tasks(s.db).Update(ctx, id, ownerID, in.patch())
	if err != nil {
		return nil, s.notFoundOrInternal(ctx, "error updating task", err, id)
	}

	s.logger.Info(ctx, "task updated", "task_id", id)
	return task, nil
}

func (s *TaskService) remove(ctx context.Context, id, ownerID string) error {
	if err := s.repomanager.Tasks(s.db).Delete(ctx, id, ownerID); err != nil {
		return s.notFoundOrInternal(ctx, "error deleting task", err, id)
	}

	s.logger.Info(ctx, "task deleted", "task_id", id)
	return nil
}

func (s *TaskService) metrics(ctx context.Context, ownerID string, withUsers bool) (*models.TaskMetrics, error) {
	repo := s.repomanager.Tasks(s.db)

	today := timex.StartOfDay(s.now())
	from := today.AddDate(0, 0, -(metricsWindowDays - 1))
	to := today.AddDate(0, 0, 1)

	var (
		byStatus map[models.TaskStatus]int
		byDay    map[string]int
		byUser   []models.UserCount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byStatus, err = repo.CountByStatus(gctx, ownerID)
		return err
	})
	g.Go(func() error {
		var err error
		byDay, err = repo.CountByDay(gctx, ownerID, from, to)
		return err
	})
	if withUsers {
		g.Go(func() error {
			var err error
			byUser, err = repo.CountByUser(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.internal(ctx, "error computing task metrics", err, "user_id", ownerID)
	}

	m := &models.TaskMetrics{
		TasksByStatus: make([]models.StatusCount, 0, len(models.TaskStatuses)),
		TasksByDate:   make([]models.DateCount, 0, metricsWindowDays),
	}
	for _, st := range models.TaskStatuses {
		n := byStatus[st]
		m.TotalTasks += n
		m.TasksByStatus = append(m.TasksByStatus, models.StatusCount{Status: st, Count: n})
	}
	m.CompletedTasks = byStatus[models.TaskStatusCompleted]
	m.PendingTasks = m.TotalTasks - m.CompletedTasks

	for i := 0; i < metricsWindowDays; i++ {
		day := from.AddDate(0, 0, i).Format(time.DateOnly)
		m.TasksByDate = append(m.TasksByDate, models.DateCount{Date: day, Count: byDay[day]})
	}

	if withUsers {
		m.TasksByUser = byUser
		if m.TasksByUser == nil {
			m.TasksByUser = []models.UserCount{}
		}
	}

	return m, nil
}

// check runs struct validation and reports failures as common.ErrorValidation.
func (s *TaskService) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %s", common.ErrorValidation, err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", common.ErrorValidation, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return field + " is invalid"
	}
}

func (s *TaskService) notFoundOrInternal(ctx context.Context, msg string, err error, id string) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return s.internal(ctx, msg, err, "task_id", id)
}

func (s *TaskService) internal(ctx context.Context, msg string, err error, args ...any) error {
	s.logger.Error(ctx, msg, append(args, "error", err.Error())...)
	return common.ErrorInternal
}
