package metrics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// LatencyStats 延迟统计
type LatencyStats struct {
	P50Ms float64
	P95Ms float64
	P99Ms float64
	AvgMs float64
	N     int
}

// StageARow 阶段 A 单行数据：写缓存容量 vs 去重与吞吐
type StageARow struct {
	Store       string
	CacheSize   int
	Values      int
	Distinct    int
	Stored      int
	DedupHits   float64
	WriteDurMs  float64
	FileMB      float64
	HeapAllocMB float64
}

// StageBRow 阶段 B 单行数据：峰图写入与色谱查询
type StageBRow struct {
	PeakMaps   int
	Spectra    uint64
	Peaks      uint64
	WriteDurMs float64
	FinalizeMs float64
	ChromP50Ms float64
	ChromP99Ms float64
	BlobMB     float64
	IndexMB    float64
	HeapSysMB  float64
}

// StageCRow 阶段 C 单行数据：并发读
type StageCRow struct {
	Concurrency  int
	Rows         int
	QPS          float64
	ReadP50Ms    float64
	ReadP99Ms    float64
	NumGoroutine int
	P99P50Ratio  float64
}

// StageDRow 阶段 D 单行数据：页压缩对比
type StageDRow struct {
	Compression string
	Rows        int
	FileMB      float64
	WriteDurMs  float64
	ScanDurMs   float64
}

// Percentile 计算切片中第 p 百分位（0-100），输入需已排序
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	idx := int(float64(len(sorted)-1) * p / 100)
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// LatencyStatsFromDurations 从耗时列表计算 P50/P95/P99
func LatencyStatsFromDurations(durations []time.Duration) LatencyStats {
	if len(durations) == 0 {
		return LatencyStats{}
	}
	ms := make([]float64, len(durations))
	var sum float64
	for i, d := range durations {
		ms[i] = float64(d.Nanoseconds()) / 1e6
		sum += ms[i]
	}
	slices.Sort(ms)
	return LatencyStats{
		P50Ms: Percentile(ms, 50),
		P95Ms: Percentile(ms, 95),
		P99Ms: Percentile(ms, 99),
		AvgMs: sum / float64(len(ms)),
		N:     len(ms),
	}
}

// writeCSV 写入表头与数据行
func writeCSV(path string, header []string, rows [][]string) error {
	_ = os.MkdirAll(filepath.Dir(path), 0755)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	w.Write(header)
	for _, r := range rows {
		w.Write(r)
	}
	w.Flush()
	return w.Error()
}

// WriteStageACSV 写入阶段 A 报告
func WriteStageACSV(rows []StageARow, path string) error {
	var out [][]string
	for _, r := range rows {
		out = append(out, []string{
			r.Store,
			fmt.Sprintf("%d", r.CacheSize),
			fmt.Sprintf("%d", r.Values),
			fmt.Sprintf("%d", r.Distinct),
			fmt.Sprintf("%d", r.Stored),
			fmt.Sprintf("%.0f", r.DedupHits),
			fmt.Sprintf("%.2f", r.WriteDurMs),
			fmt.Sprintf("%.2f", r.FileMB),
			fmt.Sprintf("%.2f", r.HeapAllocMB),
		})
	}
	return writeCSV(path, []string{"Store", "CacheSize", "Values", "Distinct", "Stored", "DedupHits", "WriteDurMs", "FileMB", "HeapAllocMB"}, out)
}

// WriteStageBCSV 写入阶段 B 报告
func WriteStageBCSV(rows []StageBRow, path string) error {
	var out [][]string
	for _, r := range rows {
		out = append(out, []string{
			fmt.Sprintf("%d", r.PeakMaps),
			fmt.Sprintf("%d", r.Spectra),
			fmt.Sprintf("%d", r.Peaks),
			fmt.Sprintf("%.2f", r.WriteDurMs),
			fmt.Sprintf("%.2f", r.FinalizeMs),
			fmt.Sprintf("%.3f", r.ChromP50Ms),
			fmt.Sprintf("%.3f", r.ChromP99Ms),
			fmt.Sprintf("%.2f", r.BlobMB),
			fmt.Sprintf("%.3f", r.IndexMB),
			fmt.Sprintf("%.2f", r.HeapSysMB),
		})
	}
	return writeCSV(path, []string{"PeakMaps", "Spectra", "Peaks", "WriteDurMs", "FinalizeMs", "ChromP50Ms", "ChromP99Ms", "BlobMB", "IndexMB", "HeapSysMB"}, out)
}

// WriteStageCCSV 写入阶段 C 报告
func WriteStageCCSV(rows []StageCRow, path string) error {
	var out [][]string
	for _, r := range rows {
		out = append(out, []string{
			fmt.Sprintf("%d", r.Concurrency),
			fmt.Sprintf("%d", r.Rows),
			fmt.Sprintf("%.2f", r.QPS),
			fmt.Sprintf("%.3f", r.ReadP50Ms),
			fmt.Sprintf("%.3f", r.ReadP99Ms),
			fmt.Sprintf("%d", r.NumGoroutine),
			fmt.Sprintf("%.2f", r.P99P50Ratio),
		})
	}
	return writeCSV(path, []string{"Concurrency", "Rows", "QPS", "ReadP50Ms", "ReadP99Ms", "NumGoroutine", "P99P50Ratio"}, out)
}

// WriteStageDCSV 写入阶段 D 报告
func WriteStageDCSV(rows []StageDRow, path string) error {
	var out [][]string
	for _, r := range rows {
		out = append(out, []string{
			r.Compression,
			fmt.Sprintf("%d", r.Rows),
			fmt.Sprintf("%.2f", r.FileMB),
			fmt.Sprintf("%.2f", r.WriteDurMs),
			fmt.Sprintf("%.2f", r.ScanDurMs),
		})
	}
	return writeCSV(path, []string{"Compression", "Rows", "FileMB", "WriteDurMs", "ScanDurMs"}, out)
}

// ReportDir 报告输出目录
var ReportDir = "report"

// ReportPath 生成 report/ 目录下带日期的报告路径
func ReportPath(prefix string) string {
	return filepath.Join(ReportDir, prefix+time.Now().Format("20060102")+".csv")
}

// WriteJSON 写入 JSON 报告（通用）
func WriteJSON(v interface{}, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
