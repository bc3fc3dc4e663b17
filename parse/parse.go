// Package parse reads the simulator's result files into typed records.
//
// The tabular formats (aggregate summary, per-flow results) are
// header-driven CSV: columns are matched by name, so reordering columns
// in the input does not break parsing. Congestion-window traces are
// header-less two-column samples. Rows that fail numeric conversion are
// skipped with a warning rather than aborting the file.
package parse

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	ccbench "cc-bench"
	"cc-bench/logger"
)

var (
	// ErrNotFound means the result file does not exist. This is a normal
	// outcome: the configuration simply did not produce this artifact.
	ErrNotFound = errors.New("result file not found")
	// ErrParse means the file exists but contains no parseable data row.
	ErrParse = errors.New("no parseable rows")
)

// Aggregate reads the one-row aggregate summary for a configuration.
func Aggregate(path string) (ccbench.AggregateRecord, error) {
	var rec ccbench.AggregateRecord

	rows, header, err := readTable(path)
	if err != nil {
		return rec, err
	}
	if len(rows) == 0 {
		return rec, fmt.Errorf("%s: %w", path, ErrParse)
	}

	for _, row := range rows {
		r := rowReader{header: header, row: row}
		rec = ccbench.AggregateRecord{
			Variant:             r.str("TCP_Variant", "Variant"),
			TotalThroughputMbps: r.float("Total_Throughput_Mbps"),
			AvgThroughputMbps:   r.float("Avg_Throughput_Per_Flow_Mbps", "Avg_Throughput_Mbps"),
			AvgDelayMs:          r.float("Avg_Delay_ms"),
			TotalLostPackets:    int(r.float("Total_Lost_Packets")),
			LossRatePercent:     r.float("Loss_Rate_Percent"),
			NumFlows:            int(r.float("Num_Flows")),
		}
		if r.err != nil {
			logger.Warn("skipping malformed aggregate row",
				zap.String("file", path), zap.Error(r.err))
			continue
		}
		return rec, nil
	}
	return ccbench.AggregateRecord{}, fmt.Errorf("%s: %w", path, ErrParse)
}

// Flows reads all per-flow rows for a configuration. Malformed rows are
// skipped and counted; the second return value is the number skipped.
// ErrParse is returned only when rows were present and every one failed.
func Flows(path string) ([]ccbench.FlowRecord, int, error) {
	rows, header, err := readTable(path)
	if err != nil {
		return nil, 0, err
	}

	var (
		flows   []ccbench.FlowRecord
		skipped int
	)
	for _, row := range rows {
		r := rowReader{header: header, row: row}
		rec := ccbench.FlowRecord{
			FlowID:         int32(r.float("Flow_ID")),
			ThroughputMbps: r.float("Throughput_Mbps"),
			DelayMs:        r.float("Delay_ms", "Avg_Delay_ms"),
		}
		// Optional columns.
		rec.RTTMs = int32(r.optFloat("RTT_ms"))
		rec.LossRatePercent = r.optFloat("Loss_Rate_Percent")
		rec.DataReceivedMB = r.optFloat("Data_Received_MB")
		if r.err != nil {
			skipped++
			logger.Warn("skipping malformed flow row",
				zap.String("file", path), zap.Error(r.err))
			continue
		}
		flows = append(flows, rec)
	}

	if len(flows) == 0 && skipped > 0 {
		return nil, skipped, fmt.Errorf("%s: %w", path, ErrParse)
	}
	return flows, skipped, nil
}

// TimeSeries reads a congestion-window trace: two numeric columns,
// whitespace or comma separated. Lines starting with '#' and blank lines
// are skipped silently, as is a leading header row (the Time,
// CongestionWindow dialect). Returns the number of skipped data lines
// alongside the samples.
func TimeSeries(path string) ([]ccbench.TimeSeriesSample, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, 0, fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	var (
		samples  []ccbench.TimeSeriesSample
		skipped  int
		attempts int
	)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var fields []string
		if strings.Contains(line, ",") {
			fields = strings.Split(line, ",")
		} else {
			fields = strings.Fields(line)
		}
		if len(fields) < 2 {
			attempts++
			skipped++
			logger.Warn("skipping short trace line", zap.String("file", path), zap.String("line", line))
			continue
		}

		t, errT := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		v, errV := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if errT != nil || errV != nil {
			// A leading non-numeric row is the header of the CSV trace
			// dialect, not bad data.
			if attempts == 0 && len(samples) == 0 {
				attempts++
				continue
			}
			attempts++
			skipped++
			logger.Warn("skipping malformed trace line", zap.String("file", path), zap.String("line", line))
			continue
		}
		attempts++
		samples = append(samples, ccbench.TimeSeriesSample{Time: t, Value: v})
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read trace: %w", err)
	}

	if len(samples) == 0 && skipped > 0 {
		return nil, skipped, fmt.Errorf("%s: %w", path, ErrParse)
	}
	return samples, skipped, nil
}

// readTable loads a header-driven CSV file into raw rows plus a
// column-name index.
func readTable(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to open result file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	head, err := r.Read()
	if err == io.EOF {
		return nil, map[string]int{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	header := make(map[string]int, len(head))
	for i, name := range head {
		header[strings.TrimSpace(name)] = i
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Structurally broken line; skip it like any other bad row.
			logger.Warn("skipping unreadable csv line", zap.String("file", path), zap.Error(err))
			continue
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}

// rowReader extracts typed fields from one CSV row by column name,
// accumulating the first error instead of failing fast so a row is
// rejected as a whole.
type rowReader struct {
	header map[string]int
	row    []string
	err    error
}

func (r *rowReader) lookup(names ...string) (string, bool) {
	for _, n := range names {
		if i, ok := r.header[n]; ok && i < len(r.row) {
			return strings.TrimSpace(r.row[i]), true
		}
	}
	return "", false
}

func (r *rowReader) str(names ...string) string {
	v, ok := r.lookup(names...)
	if !ok && r.err == nil {
		r.err = fmt.Errorf("missing column %q", names[0])
	}
	return v
}

func (r *rowReader) float(names ...string) float64 {
	v, ok := r.lookup(names...)
	if !ok {
		if r.err == nil {
			r.err = fmt.Errorf("missing column %q", names[0])
		}
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		if r.err == nil {
			r.err = fmt.Errorf("bad value %q for column %q", v, names[0])
		}
		return 0
	}
	return f
}

// optFloat reads a column that may legitimately be absent; absence is not
// an error, a present-but-unparseable value is.
func (r *rowReader) optFloat(names ...string) float64 {
	v, ok := r.lookup(names...)
	if !ok || v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		if r.err == nil {
			r.err = fmt.Errorf("bad value %q for column %q", v, names[0])
		}
		return 0
	}
	return f
}
