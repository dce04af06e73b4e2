package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// SetLogging configures the process-wide logger. Simulation runs span
// many log lines, so full timestamps beat the default elapsed-seconds
// rendering when reading a run back.
func SetLogging() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.InfoLevel)
	logrus.SetOutput(os.Stdout)
}
