package web

import (
	"context"

	"github.com/navikt/mrooms/internal/service"
)

// RoomServicer defines the contract for room services used by web handlers
type RoomServicer interface {
	StatusData(ctx context.Context) ([]service.RoomStatusData, error)
	AllUnreachable() bool
}
