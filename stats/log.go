package stats

import (
	"io"
	"os"

	"github.com/lunny/log"
)

const logPrefix = "[rnastats] "

var logger = log.New(os.Stderr, logPrefix, log.LstdFlags)

// SetLogOutput redirects the diagnostics of this package (skipped corpus
// lines, angle type failures, ...) to w. It is meant to be called once at
// start-up, before any corpus is loaded.
func SetLogOutput(w io.Writer) {
	logger = log.New(w, logPrefix, log.LstdFlags)
}
