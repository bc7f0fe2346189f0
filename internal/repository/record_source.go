package repository

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"helpdesk-go/internal/config"
	"helpdesk-go/internal/model"
)

// 支持数据集的列名
const (
	ColumnTicketType  = "Ticket Type"
	ColumnSubject     = "Ticket Subject"
	ColumnDescription = "Ticket Description"
	ColumnResolution  = "Resolution"
	ColumnPriority    = "Ticket Priority"
	ColumnCategory    = "Category"
)

// RequiredColumns 是 CSV 数据集必须包含的列。
var RequiredColumns = []string{ColumnTicketType, ColumnSubject, ColumnDescription, ColumnResolution, ColumnPriority}

// RecordSource 是推荐引擎只读的语料来源。
type RecordSource interface {
	Load(ctx context.Context) ([]model.HistoricalRecord, error)
}

// NewRecordSource 按配置选择语料来源，database 类型使用 records。
func NewRecordSource(cfg config.CorpusSourceConfig, records RecordRepository) (RecordSource, error) {
	switch strings.ToLower(cfg.Type) {
	case "", "database":
		if records == nil {
			return nil, errors.New("database corpus source requires a record repository")
		}
		return records, nil
	case "json":
		return &JSONFileSource{Path: cfg.Path}, nil
	case "csv":
		return &CSVFileSource{Path: cfg.Path}, nil
	}
	return nil, fmt.Errorf("unknown corpus source type: %s", cfg.Type)
}

// JSONFileSource 从 JSON 数组文件读取历史记录，字段为 category/issue/resolution 等。
type JSONFileSource struct {
	Path string
}

func (s *JSONFileSource) Load(ctx context.Context) ([]model.HistoricalRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("打开语料文件失败: %w", err)
	}
	defer f.Close()

	var records []model.HistoricalRecord
	if err := json.NewDecoder(f).Decode(&records); err != nil {
		return nil, fmt.Errorf("解析语料文件 %s 失败: %w", s.Path, err)
	}
	return records, nil
}

// CSVFileSource 从清洗后的支持数据集 CSV 读取历史记录。
type CSVFileSource struct {
	Path string
}

func (s *CSVFileSource) Load(ctx context.Context) ([]model.HistoricalRecord, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("打开语料文件失败: %w", err)
	}
	defer f.Close()

	rows, err := ReadTicketCSV(f)
	if err != nil {
		return nil, fmt.Errorf("读取语料文件 %s 失败: %w", s.Path, err)
	}
	records := make([]model.HistoricalRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Record())
	}
	return records, nil
}

// TicketRow 是数据集中的一行。
type TicketRow struct {
	TicketType  string
	Subject     string
	Description string
	Resolution  string
	Priority    string
	Category    string
}

// Record 转换为历史记录。数据集没有分类列时以工单类型作为分类。
func (r TicketRow) Record() model.HistoricalRecord {
	category := r.Category
	if category == "" {
		category = r.TicketType
	}
	return model.HistoricalRecord{
		Category:   category,
		TicketType: r.TicketType,
		Subject:    r.Subject,
		Issue:      r.Description,
		Resolution: r.Resolution,
		Priority:   r.Priority,
	}
}

// MissingColumnsError 表示 CSV 缺少必需列。
type MissingColumnsError struct {
	Missing   []string
	Available []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing columns %v (available: %v)", e.Missing, e.Available)
}

// ReadTicketCSV 读取带表头的数据集，表头必须包含 RequiredColumns。
func ReadTicketCSV(r io.Reader) ([]TicketRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, &MissingColumnsError{Missing: RequiredColumns}
		}
		return nil, err
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := pos[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing, Available: header}
	}

	field := func(rec []string, col string) string {
		i, ok := pos[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []TicketRow
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, TicketRow{
			TicketType:  field(rec, ColumnTicketType),
			Subject:     field(rec, ColumnSubject),
			Description: field(rec, ColumnDescription),
			Resolution:  field(rec, ColumnResolution),
			Priority:    field(rec, ColumnPriority),
			Category:    field(rec, ColumnCategory),
		})
	}
	return rows, nil
}

// WriteTicketCSV 以数据集格式写出，列顺序为 RequiredColumns。
func WriteTicketCSV(w io.Writer, rows []TicketRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RequiredColumns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.TicketType, r.Subject, r.Description, r.Resolution, r.Priority}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
