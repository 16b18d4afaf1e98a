package driver

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
)

// Operation names as they appear in records.
const (
	OpContains = "contains"
	OpInsert   = "insert"
	OpDelete   = "delete"
	OpReplace  = "replace"
)

// Record statuses.
const (
	StatusStarted  = "started"
	StatusFinished = "finished"
)

// Field names carried by every operation record.
const (
	FieldElapsed = "elapsed"
	FieldThread  = "thread"
	FieldOp      = "op"
	FieldStatus  = "status"
	FieldItem1   = "item1"
	FieldItem2   = "item2"
	FieldResult  = "result"
)

// CSVHeader is the first line of CSV output.
const CSVHeader = "Timestamp,Thread,Operation,Status,Item 1,Item 2,Result"

// CSVFormatter renders operation records as CSV rows. Entries that are not
// operation records are written as comment lines starting with '#'.
type CSVFormatter struct{}

var _ logrus.Formatter = (*CSVFormatter)(nil)

// Format implements logrus.Formatter.
func (f *CSVFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	op, ok := entry.Data[FieldOp]
	if !ok {
		b.WriteString("# ")
		b.WriteString(entry.Message)
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
		}
		b.WriteByte('\n')
		return b.Bytes(), nil
	}
	fmt.Fprintf(&b, "%v,%v,%v,%v,%s,%s,%s\n",
		entry.Data[FieldElapsed],
		entry.Data[FieldThread],
		op,
		entry.Data[FieldStatus],
		optional(entry.Data, FieldItem1),
		optional(entry.Data, FieldItem2),
		optional(entry.Data, FieldResult),
	)
	return b.Bytes(), nil
}

func optional(data logrus.Fields, key string) string {
	v, ok := data[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

// NewRecordLogger returns a logger writing operation records to w in the
// given format. CSV output starts with CSVHeader.
func NewRecordLogger(w io.Writer, format string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(logrus.InfoLevel)
	switch format {
	case FormatCSV:
		logger.SetFormatter(&CSVFormatter{})
		if _, err := fmt.Fprintln(w, CSVHeader); err != nil {
			return nil, err
		}
	case FormatText:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, format)
	}
	return logger, nil
}
