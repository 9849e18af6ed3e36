package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/poiesic/lectern/core"
	"github.com/poiesic/lectern/storage"
)

type subjectRepository struct {
	backend *Backend
}

var _ storage.SubjectRepository = (*subjectRepository)(nil)

// NewSubjectRepository creates a subject repository on the shared backend.
func NewSubjectRepository(backend *Backend) (storage.SubjectRepository, error) {
	if backend == nil {
		return nil, errors.New("backend required")
	}
	return &subjectRepository{backend: backend}, nil
}

func (r *subjectRepository) CreateSubject(ctx context.Context, subject *core.Subject) error {
	if err := core.ValidateSubject(subject); err != nil {
		return err
	}
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = time.Now()
	}
	err := r.backend.db.WithContext(ctx).Create(subjectToRow(subject)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: subject %q", storage.ErrDuplicateKey, subject.Name)
	}
	return err
}

func (r *subjectRepository) GetSubject(ctx context.Context, id string) (*core.Subject, error) {
	var row subjectRow
	err := r.backend.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: subject %s", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return subjectFromRow(&row), nil
}

func (r *subjectRepository) GetSubjectByName(ctx context.Context, name string) (*core.Subject, error) {
	var row subjectRow
	err := r.backend.db.WithContext(ctx).Where("name = ?", name).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: subject named %q", storage.ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return subjectFromRow(&row), nil
}

func (r *subjectRepository) ListSubjects(ctx context.Context) ([]*core.Subject, error) {
	var rows []subjectRow
	if err := r.backend.db.WithContext(ctx).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	subjects := make([]*core.Subject, len(rows))
	for i := range rows {
		subjects[i] = subjectFromRow(&rows[i])
	}
	return subjects, nil
}

func (r *subjectRepository) DeleteSubject(ctx context.Context, id string) error {
	return r.backend.db.WithContext(ctx).Where("id = ?", id).Delete(&subjectRow{}).Error
}
