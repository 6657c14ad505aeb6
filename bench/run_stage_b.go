// 阶段 B: 峰图规模扩展：写入、Finalize 耗时与 mmap 加载后的色谱查询延迟
package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/ic-timon/peakstore/bench/gen"
	"github.com/ic-timon/peakstore/bench/metrics"
	"github.com/ic-timon/peakstore/colstore"
)

func runStageB(opts stageOpts) {
	const spectraPerMap = 200
	const peaksPerSpectrum = 300
	const queryRuns = 200

	scales := []int{10, 50, 100, 200}

	var rows []metrics.StageBRow
	for _, n := range scales {
		fmt.Printf("阶段 B: 峰图数 %d (每图 %d 谱, 每谱 %d 峰)\n", n, spectraPerMap, peaksPerSpectrum)

		maps := gen.PeakMaps(n, spectraPerMap, peaksPerSpectrum, int64(n))
		path := opts.path(fmt.Sprintf("stage-b-%d.pkst", n))
		cfg := opts.config()

		c, err := colstore.Create(path, cfg)
		if err != nil {
			panic(err)
		}
		ids := make([]colstore.GlobalID, n)
		t0 := time.Now()
		for i, pm := range maps {
			if ids[i], err = c.Store(pm); err != nil {
				panic(err)
			}
		}
		writeDur := time.Since(t0)
		t1 := time.Now()
		if err := c.Finalize(); err != nil {
			panic(err)
		}
		finalizeDur := time.Since(t1)

		r, err := colstore.Open(path, cfg)
		if err != nil {
			panic(err)
		}
		rng := rand.New(rand.NewSource(int64(n)))
		durations := make([]time.Duration, queryRuns)
		for i := 0; i < queryRuns; i++ {
			v, err := r.Fetch(ids[rng.Intn(n)])
			if err != nil {
				panic(err)
			}
			mz := 100 + rng.Float64()*1800
			rt := float32(rng.Intn(spectraPerMap / 2))
			t2 := time.Now()
			if _, err := v.(*colstore.PeakMapProxy).Chromatogram(mz-0.5, mz+0.5, rt, rt+20, 1); err != nil {
				panic(err)
			}
			durations[i] = time.Since(t2)
		}
		stats := metrics.LatencyStatsFromDurations(durations)
		st := r.Stats()
		metrics.Settle()
		after := metrics.Take(r)
		r.Close()

		rows = append(rows, metrics.StageBRow{
			PeakMaps:   st.PeakMaps,
			Spectra:    st.Spectra,
			Peaks:      st.Peaks,
			WriteDurMs: float64(writeDur.Nanoseconds()) / 1e6,
			FinalizeMs: float64(finalizeDur.Nanoseconds()) / 1e6,
			ChromP50Ms: stats.P50Ms,
			ChromP99Ms: stats.P99Ms,
			BlobMB:     metrics.MB(after.BlobBytes),
			IndexMB:    metrics.MB(after.IndexBytes),
			HeapSysMB:  metrics.MB(after.HeapSys),
		})
		row := rows[len(rows)-1]
		fmt.Printf("  Write=%.0fms Finalize=%.0fms ChromP50=%.3fms P99=%.3fms Blob=%.1fMB Index=%.2fMB HeapSys=%.1fMB\n",
			row.WriteDurMs, row.FinalizeMs, stats.P50Ms, stats.P99Ms, row.BlobMB, row.IndexMB, row.HeapSysMB)
	}

	path := metrics.ReportPath("bench_report_stage_b_")
	if err := metrics.WriteStageBCSV(rows, path); err != nil {
		panic(err)
	}
	fmt.Printf("报告已写入 %s\n", path)
}
