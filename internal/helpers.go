// Package internal holds helpers shared by the computegen command and packages.
package internal

// PanicOnError panics when err is set. Use it only for programming mistakes
// that no input can cause, such as binding a flag that was never declared.
func PanicOnError(err error) {
	if err != nil {
		panic(err)
	}
}
