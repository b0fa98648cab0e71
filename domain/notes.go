package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Note struct {
	Id          uuid.UUID
	UserId      uuid.UUID
	CreatedBy   string // Username, filled in by joins on read
	Message     string
	ActivityURI string // URI of the Create activity that produced this note
	CreatedAt   time.Time
}

func (note *Note) ToString() string {
	return fmt.Sprintf("\n\tId: %s \n\tCreatedBy: %s \n\tMessage: %s \n\tCreatedAt: %s)", note.Id, note.CreatedBy, note.Message, note.CreatedAt)
}
