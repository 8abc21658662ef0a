package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-roster-web/internal/config"
	"github.com/noah-isme/gema-roster-web/internal/store"
	"github.com/noah-isme/gema-roster-web/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Backend     string    `json:"backend"`
	// StoreVersion counts the store patches applied since start.
	StoreVersion uint64 `json:"store_version"`
	Students     int    `json:"students"`
	Assignments  int    `json:"assignments"`
	Submissions  int    `json:"submissions"`
}

// HealthCheck returns a handler that reports application health information.
// st may be nil.
func HealthCheck(cfg config.Config, st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Backend:     cfg.BackendURL,
		}
		if st != nil {
			snap := st.Snapshot()
			payload.StoreVersion = snap.Version
			payload.Students = len(snap.Students)
			payload.Assignments = len(snap.Assignments)
			payload.Submissions = len(snap.Submissions)
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
