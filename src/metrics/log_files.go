package metrics

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
	"crossbot/src/utils/general"
)

const (
	UptimeLogFileName    = "uptime_log.txt"
	MetricsLogFileName   = "metrics_log.json"
	TradeHistoryFileName = "trade_history.csv"
	ReportFileName       = "performance_report.txt"
	PnlChartFileName     = "pnl_chart.png"
)

var tradeHistoryHeader = []string{"timestamp", "price", "position", "pnl", "type"}

var ErrMalformedLog = errors.Sentinel("malformed log")

// FormatTimestamp writes t as unix seconds with a nine digit fraction, so
// parsing it back yields the same instant.
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%d.%09d", t.Unix(), t.Nanosecond())
}

// ParseTimestamp reads fractional unix seconds. Fractions shorter than nine
// digits are accepted, digits past the ninth are dropped.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	secondsPart, fractionPart, _ := strings.Cut(value, ".")
	seconds, err := strconv.ParseInt(secondsPart, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapef(ErrMalformedLog, err, "timestamp %q", value)
	}
	var nanos int64
	if fractionPart != "" {
		if len(fractionPart) > 9 {
			fractionPart = fractionPart[:9]
		}
		fractionPart += strings.Repeat("0", 9-len(fractionPart))
		nanos, err = strconv.ParseInt(fractionPart, 10, 64)
		if err != nil || nanos < 0 {
			return time.Time{}, errors.Wrapf(ErrMalformedLog, "timestamp %q", value)
		}
	}
	return time.Unix(seconds, nanos).UTC(), nil
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'g', -1, 64)
}

// AppendTradeRecord appends one row to the trade history, writing the header
// first when the file is new or empty.
func AppendTradeRecord(path string, record datamodels.TransactionRecord) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to open trade history")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrap(err, "failed to stat trade history")
	}

	csvWriter := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := csvWriter.Write(tradeHistoryHeader); err != nil {
			return errors.Wrap(err, "failed to write trade history header")
		}
	}
	row := []string{
		FormatTimestamp(record.Timestamp),
		formatFloat(record.Price),
		strconv.Itoa(int(record.Position)),
		formatFloat(record.Pnl),
		string(record.Kind),
	}
	if err := csvWriter.Write(row); err != nil {
		return errors.Wrap(err, "failed to write trade history row")
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return errors.Wrap(err, "failed to flush trade history")
	}
	return nil
}

// ReadTradeHistory parses a trade history file. A missing file returns an
// error matching fs.ErrNotExist.
func ReadTradeHistory(path string) ([]datamodels.TransactionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open trade history")
	}
	defer f.Close()
	return parseTradeHistory(f)
}

func parseTradeHistory(r io.Reader) ([]datamodels.TransactionRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(tradeHistoryHeader)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WrapE(ErrMalformedLog, err)
	}

	records := make([]datamodels.TransactionRecord, 0, len(rows))
	for i, row := range rows {
		if i == 0 && row[0] == tradeHistoryHeader[0] {
			continue
		}
		record, err := parseTradeRow(row)
		if err != nil {
			return nil, errors.Wrapf(err, "trade history row %d", i+1)
		}
		records = append(records, record)
	}
	return records, nil
}

func parseTradeRow(row []string) (datamodels.TransactionRecord, error) {
	timestamp, err := ParseTimestamp(row[0])
	if err != nil {
		return datamodels.TransactionRecord{}, err
	}
	price, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return datamodels.TransactionRecord{}, errors.Wrapef(ErrMalformedLog, err, "price %q", row[1])
	}
	position, err := parsePosition(row[2])
	if err != nil {
		return datamodels.TransactionRecord{}, err
	}
	pnl, err := strconv.ParseFloat(row[3], 64)
	if err != nil {
		return datamodels.TransactionRecord{}, errors.Wrapef(ErrMalformedLog, err, "pnl %q", row[3])
	}
	kind := datamodels.TransactionKind(row[4])
	if kind != datamodels.TransactionKindEntry && kind != datamodels.TransactionKindExit {
		return datamodels.TransactionRecord{}, errors.Wrapf(ErrMalformedLog, "transaction type %q", row[4])
	}
	return datamodels.TransactionRecord{
		Timestamp: timestamp,
		Price:     price,
		Position:  position,
		Pnl:       pnl,
		Kind:      kind,
	}, nil
}

// older files carry the position as a float, e.g. "-1.0"
func parsePosition(value string) (datamodels.Position, error) {
	if n, err := strconv.Atoi(value); err == nil {
		position := datamodels.Position(n)
		if position.Valid() {
			return position, nil
		}
	} else if f, err := strconv.ParseFloat(value, 64); err == nil && f == float64(int(f)) {
		position := datamodels.Position(int(f))
		if position.Valid() {
			return position, nil
		}
	}
	return datamodels.PositionFlat, errors.Wrapf(ErrMalformedLog, "position %q", value)
}

func AppendHeartbeat(path string, heartbeat datamodels.UptimeHeartbeat) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "failed to open uptime log")
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s,UP\n", FormatTimestamp(heartbeat.Timestamp)); err != nil {
		return errors.Wrap(err, "failed to write heartbeat")
	}
	return nil
}

// ReadUptimeLog returns heartbeat timestamps in file order. Blank lines are skipped.
func ReadUptimeLog(path string) ([]time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open uptime log")
	}
	defer f.Close()

	timestamps := []time.Time{}
	scanner := bufio.NewScanner(f)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		timestampField, status, found := strings.Cut(line, ",")
		if !found || status != "UP" {
			return nil, errors.Wrapf(ErrMalformedLog, "uptime log line %d: %q", lineNumber, line)
		}
		timestamp, err := ParseTimestamp(timestampField)
		if err != nil {
			return nil, errors.Wrapf(err, "uptime log line %d", lineNumber)
		}
		timestamps = append(timestamps, timestamp)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read uptime log")
	}
	return timestamps, nil
}

// WriteMetricsLog replaces the metrics document in one rename so readers never see a partial file.
func WriteMetricsLog(path string, document datamodels.MetricsLogDocument) error {
	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal metrics log")
	}
	if err := general.AtomicWriteFile(path, append(data, '\n'), 0644); err != nil {
		return errors.Wrap(err, "failed to write metrics log")
	}
	return nil
}

func ReadMetricsLog(path string) (datamodels.MetricsLogDocument, error) {
	document := datamodels.MetricsLogDocument{}
	data, err := os.ReadFile(path)
	if err != nil {
		return document, errors.Wrap(err, "failed to read metrics log")
	}
	if err := json.Unmarshal(data, &document); err != nil {
		return document, errors.WrapE(ErrMalformedLog, err)
	}
	return document, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
