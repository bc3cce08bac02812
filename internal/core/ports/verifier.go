package ports

// Verifier checks that built artifacts exist on disk.
//
//go:generate go run go.uber.org/mock/mockgen -destination=mocks/verifier_mock.go -package=mocks -source=verifier.go
type Verifier interface {
	// VerifyOutputs reports whether every output exists below root.
	VerifyOutputs(root string, outputs []string) (bool, error)
}
