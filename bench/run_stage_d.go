// 阶段 D: 对比页压缩 none vs zstd 的文件大小、写入与全表扫描耗时
package main

import (
	"fmt"
	"time"

	"github.com/ic-timon/peakstore/bench/gen"
	"github.com/ic-timon/peakstore/bench/metrics"
	"github.com/ic-timon/peakstore/colstore"
)

func runStageD(opts stageOpts) {
	const rowCount = 50_000
	const runs = 3 // 多轮取平均

	table := gen.Table(rowCount, 777)

	var rows []metrics.StageDRow
	for _, compression := range []string{"none", "zstd"} {
		fmt.Printf("阶段 D: compression=%s\n", compression)
		cfg := opts.config()
		cfg.Compression = compression

		var sumWrite, sumScan float64
		var fileMB float64
		for r := 0; r < runs; r++ {
			path := opts.path(fmt.Sprintf("stage-d-%s-%d.pkst", compression, r))

			t0 := time.Now()
			if err := colstore.WriteTable(path, table, cfg); err != nil {
				panic(err)
			}
			sumWrite += float64(time.Since(t0).Nanoseconds()) / 1e6

			c, err := colstore.Open(path, cfg)
			if err != nil {
				panic(err)
			}
			fileMB = metrics.MB(metrics.Take(c).FileBytes)
			t1 := time.Now()
			tr, err := c.OpenTable()
			if err != nil {
				panic(err)
			}
			if _, err := tr.ReadAll(); err != nil {
				panic(err)
			}
			sumScan += float64(time.Since(t1).Nanoseconds()) / 1e6
			c.Close()
		}

		rows = append(rows, metrics.StageDRow{
			Compression: compression,
			Rows:        rowCount,
			FileMB:      fileMB,
			WriteDurMs:  sumWrite / runs,
			ScanDurMs:   sumScan / runs,
		})
		fmt.Printf("  File=%.2fMB Write=%.0fms Scan=%.0fms (avg of %d runs)\n",
			fileMB, sumWrite/runs, sumScan/runs, runs)
	}
	if len(rows) == 2 && rows[1].FileMB > 0 {
		fmt.Printf("  对比: none/zstd 文件大小比=%.2f\n", rows[0].FileMB/rows[1].FileMB)
	}

	path := metrics.ReportPath("bench_report_stage_d_")
	if err := metrics.WriteStageDCSV(rows, path); err != nil {
		panic(err)
	}
	fmt.Printf("报告已写入 %s\n", path)
}
