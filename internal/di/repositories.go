package di

import (
	"github.com/aristath/pricer/internal/modules/pricing/repository"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates the repositories over pricing.db
func InitializeRepositories(container *Container, log zerolog.Logger) {
	conn := container.PricingDB.Conn()

	container.ContextRepo = repository.NewContextRepository(conn, log)
	container.RecommendationRepo = repository.NewRecommendationRepository(conn, log)
	container.SummaryRepo = repository.NewSummaryRepository(conn, log)
}
