package tollplazas

import (
	"context"

	"github.com/angelmondragon/tollwatch-backend/internal/repo"
	"github.com/angelmondragon/tollwatch-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads the toll plaza catalog.
type Repository interface {
	List(ctx context.Context) ([]models.TollPlaza, error)
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a toll plaza repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) List(ctx context.Context) ([]models.TollPlaza, error) {
	var plazas []models.TollPlaza
	if err := r.DB(ctx).Order("name ASC, id ASC").Find(&plazas).Error; err != nil {
		return nil, err
	}
	return plazas, nil
}
