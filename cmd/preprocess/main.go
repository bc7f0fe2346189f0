// Command preprocess 清洗原始工单数据集，输出可作为推荐语料的 CSV 或写入历史记录表。
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"helpdesk-go/internal/config"
	"helpdesk-go/internal/model"
	"helpdesk-go/internal/pipeline"
	"helpdesk-go/internal/repository"
	"helpdesk-go/pkg/database"
	"helpdesk-go/pkg/log"
)

type cliOptions struct {
	configPath string
	inputPath  string
	outputPath string
	toDB       bool
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "preprocess: %v\n", err)
		os.Exit(2)
	}
	log.Init("info", "console", "")
	defer log.Sync()
	if err := run(opts, os.Stdout); err != nil {
		log.Fatal("preprocess failed", err)
	}
}

func parseFlags() (cliOptions, error) {
	var opts cliOptions
	flag.StringVar(&opts.configPath, "config", "./configs/config.yaml", "配置文件路径，写入数据库时使用")
	flag.StringVar(&opts.inputPath, "input", "customer_support_tickets.csv", "原始工单 CSV")
	flag.StringVar(&opts.outputPath, "output", "processed_tickets.csv", "清洗后的 CSV，留空则不写文件")
	flag.BoolVar(&opts.toDB, "db", false, "同时写入 historical_records 表")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [--input FILE] [--output FILE] [--db]\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	opts.inputPath = strings.TrimSpace(opts.inputPath)
	opts.outputPath = strings.TrimSpace(opts.outputPath)
	if opts.inputPath == "" {
		flag.Usage()
		return opts, errors.New("missing required --input file")
	}
	if opts.outputPath == "" && !opts.toDB {
		return opts, errors.New("nothing to do: set --output or --db")
	}
	return opts, nil
}

func run(opts cliOptions, out io.Writer) error {
	f, err := os.Open(opts.inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	rows, err := repository.ReadTicketCSV(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.inputPath, err)
	}
	cleaned, stats := pipeline.Preprocess(rows)
	log.Infow("[Preprocess] 数据清洗完成", "input", stats.InputRows, "output", stats.OutputRows, "duplicates", stats.Duplicates)

	if opts.outputPath != "" {
		if err := writeCSV(opts.outputPath, cleaned); err != nil {
			return err
		}
	}
	if opts.toDB {
		if err := saveToDB(opts.configPath, cleaned); err != nil {
			return err
		}
	}
	printStats(out, stats)
	return nil
}

func writeCSV(path string, rows []repository.TicketRow) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := repository.WriteTicketCSV(f, rows); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}

func saveToDB(configPath string, rows []repository.TicketRow) error {
	var cfg config.Config
	if err := config.Load(configPath, &cfg); err != nil {
		return err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	records := make([]model.HistoricalRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.Record())
	}
	if err := repository.NewRecordRepository(db).CreateBatch(records); err != nil {
		return fmt.Errorf("保存历史记录失败: %w", err)
	}
	log.Infof("[Preprocess] 已写入 %d 条历史记录", len(records))
	return nil
}

func printStats(w io.Writer, st pipeline.Stats) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "DATA STATISTICS")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Initial rows: %d\n", st.InputRows)
	fmt.Fprintf(w, "After removing missing resolutions: %d\n", st.AfterResolution)
	fmt.Fprintf(w, "After removing missing descriptions: %d\n", st.AfterDescription)
	fmt.Fprintf(w, "Removed %d duplicate entries\n", st.Duplicates)
	fmt.Fprintf(w, "\nTotal Tickets: %d\n", st.OutputRows)
	fmt.Fprintln(w, "\nTicket Type Distribution:")
	for _, c := range st.TypeDistribution {
		fmt.Fprintf(w, "  - %s: %d\n", c.Value, c.Count)
	}
	fmt.Fprintln(w, "\nPriority Distribution:")
	for _, c := range st.PriorityBreakdown {
		fmt.Fprintf(w, "  - %s: %d\n", c.Value, c.Count)
	}
}
