package ports

// InputResolver expands dependency patterns into concrete paths.
//
//go:generate go run go.uber.org/mock/mockgen -destination=mocks/resolver_mock.go -package=mocks -source=resolver.go
type InputResolver interface {
	// ResolveInputs expands glob patterns, including recursive "**" segments,
	// relative to root. Literal names pass through unchanged. The result is
	// sorted and deduplicated per pattern, and keeps pattern order.
	ResolveInputs(inputs []string, root string) ([]string, error)
}
