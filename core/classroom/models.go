package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lophoc/core"
)

type Classroom struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	StudentCount int       `json:"student_count"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}

// NewClassroom contains information needed to create a new Classroom.
type NewClassroom struct {
	Name string `json:"name" validate:"required,notblank,max=100"`
}

func (nc *NewClassroom) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}
