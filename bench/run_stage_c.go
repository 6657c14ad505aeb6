// 阶段 C: 单容器 mmap 打开后的高并发读（按行读取，解引用字符串/对象/峰图）
package main

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ic-timon/peakstore/bench/gen"
	"github.com/ic-timon/peakstore/bench/metrics"
	"github.com/ic-timon/peakstore/colstore"
)

func runStageC(opts stageOpts) {
	const rowCount = 50_000
	const totalRequests = 20_000

	concurrencies := []int{1, 4, 8, 16, 32}

	cfg := opts.config()
	path := opts.path("stage-c.pkst")
	fmt.Printf("阶段 C: 写入 %d 行混合类型表...\n", rowCount)
	t0 := time.Now()
	if err := colstore.WriteTable(path, gen.Table(rowCount, 12345), cfg); err != nil {
		panic(err)
	}
	fmt.Printf("  写入耗时 %.0fms\n", float64(time.Since(t0).Nanoseconds())/1e6)

	c, err := colstore.Open(path, cfg)
	if err != nil {
		panic(err)
	}
	defer c.Close()
	tr, err := c.OpenTable()
	if err != nil {
		panic(err)
	}

	var rows []metrics.StageCRow
	for _, concurrency := range concurrencies {
		fmt.Printf("阶段 C: 并发数 %d\n", concurrency)

		durations := make([]time.Duration, totalRequests)
		reqPerWorker := totalRequests / concurrency
		var g errgroup.Group
		start := time.Now()
		for w := 0; w < concurrency; w++ {
			base := w * reqPerWorker
			g.Go(func() error {
				for i := 0; i < reqPerWorker && base+i < totalRequests; i++ {
					row := (base + i) * 7919 % rowCount
					t1 := time.Now()
					if _, err := tr.Row(row); err != nil {
						return fmt.Errorf("row %d: %w", row, err)
					}
					durations[base+i] = time.Since(t1)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			panic(err)
		}
		elapsed := time.Since(start).Seconds()

		stats := metrics.LatencyStatsFromDurations(durations[:reqPerWorker*concurrency])
		qps := float64(reqPerWorker*concurrency) / elapsed
		ratio := 1.0
		if stats.P50Ms > 0 {
			ratio = stats.P99Ms / stats.P50Ms
		}

		snap := metrics.Take(nil)
		rows = append(rows, metrics.StageCRow{
			Concurrency:  concurrency,
			Rows:         rowCount,
			QPS:          qps,
			ReadP50Ms:    stats.P50Ms,
			ReadP99Ms:    stats.P99Ms,
			NumGoroutine: snap.NumGoroutine,
			P99P50Ratio:  ratio,
		})
		fmt.Printf("  QPS=%.0f P50=%.3fms P99=%.3fms P99/P50=%.2f Goroutines=%d\n",
			qps, stats.P50Ms, stats.P99Ms, ratio, snap.NumGoroutine)
	}

	path = metrics.ReportPath("bench_report_stage_c_")
	if err := metrics.WriteStageCCSV(rows, path); err != nil {
		panic(err)
	}
	fmt.Printf("报告已写入 %s\n", path)
}
