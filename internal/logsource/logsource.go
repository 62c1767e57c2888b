// Package logsource produces raw line events from growing log files.
package logsource

import "github.com/antdash/antdash/internal/model"

// Source is a producer of line events for one watched input.
type Source interface {
	Lines() <-chan model.LineEvent // read-only stream of appended lines
	Stop()                         // graceful shutdown, closes Lines
	Name() string                  // node id, the watched file path
}
