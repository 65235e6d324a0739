package config

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Swapped by tests.
var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// Exitf writes one formatted line to stderr and exits with code 1.
func Exitf(format string, args ...any) {
	fmt.Fprintf(stderr, strings.TrimRight(format, "\n")+"\n", args...)
	exit(1)
}
