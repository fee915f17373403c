// Package memory is an in-process implementation of repositories.Repository.
// Transactions run one at a time against a copy of the data that replaces the
// live copy on commit, which gives the same serialization guarantees the
// postgres implementation gets from row and advisory locks.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/SAP-F-2025/exam-attempt-service/internal/models"
	"github.com/SAP-F-2025/exam-attempt-service/internal/repositories"
)

type data struct {
	exams    map[uint]*models.Exam
	attempts map[uint]*models.Attempt
	answers  map[uint][]models.Answer

	nextExamID     uint
	nextQuestionID uint
	nextOptionID   uint
	nextAttemptID  uint
	nextAnswerID   uint
}

func newData() *data {
	return &data{
		exams:    make(map[uint]*models.Exam),
		attempts: make(map[uint]*models.Attempt),
		answers:  make(map[uint][]models.Answer),
	}
}

func (d *data) clone() *data {
	out := *d
	out.exams = make(map[uint]*models.Exam, len(d.exams))
	for id, e := range d.exams {
		out.exams[id] = copyExam(e)
	}
	out.attempts = make(map[uint]*models.Attempt, len(d.attempts))
	for id, a := range d.attempts {
		out.attempts[id] = copyAttempt(a)
	}
	out.answers = make(map[uint][]models.Answer, len(d.answers))
	for id, list := range d.answers {
		out.answers[id] = append([]models.Answer(nil), list...)
	}
	return &out
}

type shared struct {
	mu   sync.Mutex
	live *data
}

type Repository struct {
	shared *shared
	tx     *data // set inside WithTransaction
	users  repositories.UserRepository
}

// NewRepository returns an empty store. users backs User(); nil gives an empty directory.
func NewRepository(users repositories.UserRepository) *Repository {
	if users == nil {
		users = NewUserDirectory()
	}
	return &Repository{
		shared: &shared{live: newData()},
		users:  users,
	}
}

// run executes fn against the transaction's data, or against the live data
// under the store lock when called outside a transaction.
func (r *Repository) run(fn func(d *data) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()
	return fn(r.shared.live)
}

func (r *Repository) Exam() repositories.ExamRepository {
	return &examStore{repo: r}
}

func (r *Repository) Attempt() repositories.AttemptRepository {
	return &attemptStore{repo: r}
}

func (r *Repository) Answer() repositories.AnswerRepository {
	return &answerStore{repo: r}
}

func (r *Repository) User() repositories.UserRepository {
	return r.users
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.shared.mu.Lock()
	defer r.shared.mu.Unlock()

	work := r.shared.live.clone()
	txRepo := &Repository{shared: r.shared, tx: work, users: r.users}
	if err := fn(txRepo); err != nil {
		return err
	}
	r.shared.live = work
	return nil
}

// WithReadTransaction runs fn against a private copy of the data taken under
// the store lock. Nothing fn writes is kept.
func (r *Repository) WithReadTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if r.tx != nil {
		return fn(r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.shared.mu.Lock()
	snapshot := r.shared.live.clone()
	r.shared.mu.Unlock()

	return fn(&Repository{shared: r.shared, tx: snapshot, users: r.users})
}

func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *Repository) Close() error {
	return nil
}

func copyExam(e *models.Exam) *models.Exam {
	out := *e
	if e.Questions != nil {
		out.Questions = make([]models.Question, len(e.Questions))
		for i, q := range e.Questions {
			out.Questions[i] = q
			out.Questions[i].Options = append([]models.Option(nil), q.Options...)
		}
	}
	return &out
}

func copyAttempt(a *models.Attempt) *models.Attempt {
	out := *a
	if a.SubmittedAt != nil {
		t := *a.SubmittedAt
		out.SubmittedAt = &t
	}
	out.Results = append(out.Results[:0:0], a.Results...)
	out.Answers = nil
	return &out
}

// RepositoryManager gives the in-memory store the same lifecycle as the
// postgres backend.
type RepositoryManager struct {
	users repositories.UserRepository
	repo  *Repository
}

func NewRepositoryManager(users repositories.UserRepository) repositories.RepositoryManager {
	return &RepositoryManager{users: users}
}

func (rm *RepositoryManager) Initialize() error {
	rm.repo = NewRepository(rm.users)
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	return nil
}
