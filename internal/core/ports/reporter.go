package ports

import "go.trai.ch/pake/internal/core/domain"

// Reporter renders the result of a build for the user.
//
//go:generate go run go.uber.org/mock/mockgen -source=reporter.go -destination=mocks/mock_reporter.go -package=mocks
type Reporter interface {
	// Report renders every row of report followed by a summary.
	Report(report *domain.Report) error
}
