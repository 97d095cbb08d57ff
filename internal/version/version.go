// Package version хранит сведения о сборке, подставляемые через -ldflags:
//
//	-X github.com/vladislavdragonenkov/storefront-cart/internal/version.version=v1.2.0
package version

import "fmt"

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info возвращает версию, коммит и дату сборки.
func Info() (v, c, d string) { return version, commit, date }

// GetVersion возвращает версию сборки.
func GetVersion() string { return version }

// GetCommit возвращает коммит сборки.
func GetCommit() string { return commit }

// GetDate возвращает дату сборки.
func GetDate() string { return date }

func String() string {
	return fmt.Sprintf("storefront-cart version=%s commit=%s date=%s", version, commit, date)
}
