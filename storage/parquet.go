package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	ccbench "cc-bench"
)

// ArchiveWriter appends parsed flow records to a timestamped Parquet
// file so a batch's raw per-flow data can be analyzed outside this tool.
// Writes are batched; Close flushes the tail. The pipeline is strictly
// sequential, so no locking is needed.
type ArchiveWriter struct {
	writer    *writer.ParquetWriter
	file      source.ParquetFile
	filePath  string
	batchSize int
	records   []ccbench.FlowRecord
}

// NewArchiveWriter creates the archive file under outputDir.
func NewArchiveWriter(outputDir string, batchSize int) (*ArchiveWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filePath := filepath.Join(outputDir, fmt.Sprintf("cc-bench-%s.parquet", timestamp))

	file, err := local.NewLocalFileWriter(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file: %w", err)
	}

	pw, err := writer.NewParquetWriter(file, new(ccbench.FlowRecord), 4)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	return &ArchiveWriter{
		writer:    pw,
		file:      file,
		filePath:  filePath,
		batchSize: batchSize,
		records:   make([]ccbench.FlowRecord, 0, batchSize),
	}, nil
}

// WriteFlow adds one record to the batch, flushing when the batch fills.
func (aw *ArchiveWriter) WriteFlow(rec ccbench.FlowRecord) error {
	aw.records = append(aw.records, rec)
	if len(aw.records) >= aw.batchSize {
		return aw.flush()
	}
	return nil
}

func (aw *ArchiveWriter) flush() error {
	for _, rec := range aw.records {
		if err := aw.writer.Write(rec); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	aw.records = aw.records[:0]
	return nil
}

// Close flushes remaining records and finalizes the file.
func (aw *ArchiveWriter) Close() error {
	if err := aw.flush(); err != nil {
		return err
	}
	if err := aw.writer.WriteStop(); err != nil {
		return fmt.Errorf("failed to stop parquet writer: %w", err)
	}
	if err := aw.file.Close(); err != nil {
		return fmt.Errorf("failed to close parquet file: %w", err)
	}
	return nil
}

// FilePath returns the path of the archive being written.
func (aw *ArchiveWriter) FilePath() string {
	return aw.filePath
}
