package biz

import (
	"github.com/consolerelay/console-relay/internal/biz/usecase"
)

// Usecases contains all usecases
type Usecases struct {
	Console *usecase.ConsoleUsecase
	Origin  *usecase.OriginUsecase
	Crawl   *usecase.CrawlUsecase
	Pull    *usecase.PullUsecase // nil in push mode
}
