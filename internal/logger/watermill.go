package logger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
)

// watermillAdapter routes watermill router and pub/sub logs into the
// category logger under the OUTBOX category.
type watermillAdapter struct {
	l      *Logger
	fields watermill.LogFields
}

func Watermill(l *Logger) watermill.LoggerAdapter {
	return &watermillAdapter{l: l, fields: watermill.LogFields{}}
}

func (a *watermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.l.log(ERROR, "OUTBOX", fmt.Sprintf("%s: %v%s", msg, err, a.format(fields)))
}

func (a *watermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.l.log(INFO, "OUTBOX", msg+a.format(fields))
}

func (a *watermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.l.log(DEBUG, "OUTBOX", msg+a.format(fields))
}

func (a *watermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.l.log(DEBUG, "OUTBOX", msg+a.format(fields))
}

func (a *watermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &watermillAdapter{l: a.l, fields: a.fields.Add(fields)}
}

func (a *watermillAdapter) format(fields watermill.LogFields) string {
	all := a.fields.Add(fields)
	if len(all) == 0 {
		return ""
	}

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, all[k]))
	}
	return " " + strings.Join(parts, " ")
}
