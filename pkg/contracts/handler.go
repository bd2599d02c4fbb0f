package contracts

import (
	"context"

	"github.com/julienschmidt/httprouter"
)

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// Worker is a background loop that runs until ctx is cancelled.
type Worker interface {
	Run(ctx context.Context)
}
