package badger

import (
	"fmt"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// badgerLoggerAdapter routes Badger's internal printf-style logging (compaction,
// value-log GC, recovery) into the store's zap logger, so database chatter lands
// in the same stream as commitment writes. Badger terminates its messages with
// a newline; zap does not, so the adapter trims it.
type badgerLoggerAdapter struct {
	logger *zap.Logger
}

var _ badgerdb.Logger = (*badgerLoggerAdapter)(nil)

func (a *badgerLoggerAdapter) format(format string, args ...interface{}) string {
	return strings.TrimSuffix(fmt.Sprintf(format, args...), "\n")
}

func (a *badgerLoggerAdapter) Errorf(format string, args ...interface{}) {
	a.logger.Error(a.format(format, args...))
}

func (a *badgerLoggerAdapter) Warningf(format string, args ...interface{}) {
	a.logger.Warn(a.format(format, args...))
}

func (a *badgerLoggerAdapter) Infof(format string, args ...interface{}) {
	a.logger.Info(a.format(format, args...))
}

func (a *badgerLoggerAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Debug(a.format(format, args...))
}
