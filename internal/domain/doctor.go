package domain

import "context"

type Doctor struct {
	ID             int
	FirstName      string
	LastName       string
	Specialization string
}

func (d *Doctor) FullName() string {
	return "Dr. " + d.FirstName + " " + d.LastName
}

type DoctorRepository interface {
	GetById(ctx context.Context, id int) (*Doctor, error)
}
