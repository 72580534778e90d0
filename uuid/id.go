package uuid

import (
	openbo "github.com/NewYaroslav/open-bo-api"
	"github.com/google/uuid"
)

type IDService struct{}

func (ids *IDService) NewID() openbo.ID {
	return uuid.New()
}

func (ids *IDService) NewIDFromString(id string) (openbo.ID, error) {
	return uuid.Parse(id)
}
