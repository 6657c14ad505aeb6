// 阶段 A: 写缓存容量对去重率、写入吞吐与文件大小的影响
package main

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ic-timon/peakstore/bench/gen"
	"github.com/ic-timon/peakstore/bench/metrics"
	"github.com/ic-timon/peakstore/colstore"
)

func runStageA(opts stageOpts) {
	const valueCount = 200_000
	const distinct = 20_000

	cacheSizes := []int{100, 1000, 10_000, 50_000}
	strs := gen.Strings(valueCount, distinct, 42)
	objs := gen.Objects(valueCount, distinct, 43)

	var rows []metrics.StageARow
	for _, store := range []string{"str", "obj"} {
		for _, size := range cacheSizes {
			fmt.Printf("阶段 A: store=%s CacheSize=%d Values=%d Distinct=%d\n", store, size, valueCount, distinct)

			cfg := opts.config()
			cfg.StringCacheSize = size
			cfg.ObjectCacheSize = size
			cfg.Registerer = prometheus.NewRegistry()
			path := opts.path(fmt.Sprintf("stage-a-%s-%d.pkst", store, size))

			c, err := colstore.Create(path, cfg)
			if err != nil {
				panic(err)
			}
			t0 := time.Now()
			for i := 0; i < valueCount; i++ {
				if store == "str" {
					_, err = c.Store(strs[i])
				} else {
					_, err = c.Store(objs[i])
				}
				if err != nil {
					panic(err)
				}
			}
			writeDur := time.Since(t0)
			stored := c.Stats().Strings + c.Stats().Objects
			hits := metrics.CounterValue(c.Metrics().DedupHits.WithLabelValues(store))
			if err := c.Finalize(); err != nil {
				panic(err)
			}

			r, err := colstore.Open(path, cfg)
			if err != nil {
				panic(err)
			}
			metrics.Settle()
			after := metrics.Take(r)
			r.Close()
			fileMB := metrics.MB(after.FileBytes)

			rows = append(rows, metrics.StageARow{
				Store:       store,
				CacheSize:   size,
				Values:      valueCount,
				Distinct:    distinct,
				Stored:      stored,
				DedupHits:   hits,
				WriteDurMs:  float64(writeDur.Nanoseconds()) / 1e6,
				FileMB:      fileMB,
				HeapAllocMB: metrics.MB(after.HeapAlloc),
			})
			fmt.Printf("  Write=%.0fms Stored=%d DedupHits=%.0f File=%.2fMB Heap=%.1fMB\n",
				rows[len(rows)-1].WriteDurMs, stored, hits, fileMB, rows[len(rows)-1].HeapAllocMB)
		}
	}

	path := metrics.ReportPath("bench_report_stage_a_")
	if err := metrics.WriteStageACSV(rows, path); err != nil {
		panic(err)
	}
	fmt.Printf("报告已写入 %s\n", path)
}
