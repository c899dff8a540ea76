package types

import (
	"time"

	"github.com/google/uuid"
)

// Genre is a named category books can be filed under.
type Genre struct {
	// ID is the unique identifier of the genre.
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	// Name is the genre label. Names are unique and compared case-sensitively.
	Name string `json:"name" gorm:"not null;uniqueIndex"`

	// CreatedAt is the timestamp at which the genre was created.
	CreatedAt time.Time `json:"created_at"`
}
