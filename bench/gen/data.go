// Package gen 提供压测用随机数据生成：字符串、对象、峰图与混合类型表
package gen

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/ic-timon/peakstore/colstore"
)

// Strings 生成 n 个字符串，其中只有 distinct 个不同值，用于观察写缓存去重效果
func Strings(n, distinct int, seed int64) []string {
	rng := rand.New(rand.NewSource(seed))
	pool := make([]string, max(distinct, 1))
	for i := range pool {
		pool[i] = fmt.Sprintf("value-%d-%x", i, rng.Uint64())
	}
	out := make([]string, n)
	for i := range out {
		out[i] = pool[rng.Intn(len(pool))]
	}
	return out
}

// Objects 生成 n 个嵌套对象（[]any / map[string]any），distinct 个不同值
func Objects(n, distinct int, seed int64) []any {
	rng := rand.New(rand.NewSource(seed))
	pool := make([]any, max(distinct, 1))
	for i := range pool {
		pool[i] = []any{i, rng.Float64(), fmt.Sprintf("tag-%d", rng.Intn(100)), []any{rng.Intn(10), rng.Intn(10)}}
	}
	out := make([]any, n)
	for i := range out {
		out[i] = pool[rng.Intn(len(pool))]
	}
	return out
}

// PeakMap 生成一个含 spectra 张谱图、每张 peaks 个峰的峰图，m/z 升序，rt 递增
func PeakMap(rng *rand.Rand, spectra, peaks int) *colstore.PeakMap {
	pm := &colstore.PeakMap{Spectra: make([]colstore.Spectrum, spectra)}
	for i := range pm.Spectra {
		mz := make([]float64, peaks)
		ii := make([]float64, peaks)
		for j := range mz {
			mz[j] = 100 + rng.Float64()*1900
			ii[j] = rng.ExpFloat64() * 1e4
		}
		sort.Float64s(mz)
		level := uint8(1)
		if i%4 == 3 {
			level = 2
		}
		pm.Spectra[i] = colstore.Spectrum{RT: float32(i) * 0.5, MSLevel: level, MZ: mz, Intensity: ii}
	}
	return pm
}

// PeakMaps 生成 n 个峰图
func PeakMaps(n, spectra, peaks int, seed int64) []*colstore.PeakMap {
	rng := rand.New(rand.NewSource(seed))
	out := make([]*colstore.PeakMap, n)
	for i := range out {
		out[i] = PeakMap(rng, spectra, peaks)
	}
	return out
}

// Table 生成 rows 行混合类型表：int/float/bool（约 5% 缺失）、str、object、peakmap 列
func Table(rows int, seed int64) *colstore.Table {
	rng := rand.New(rand.NewSource(seed))
	maps := PeakMaps(8, 20, 50, seed+1)
	t := &colstore.Table{
		Columns: []colstore.Column{
			{Name: "id", Type: colstore.TypeInt},
			{Name: "score", Type: colstore.TypeFloat, Format: "%.3f"},
			{Name: "decoy", Type: colstore.TypeBool},
			{Name: "peptide", Type: colstore.TypeString},
			{Name: "mods", Type: colstore.TypeObject},
			{Name: "peakmap", Type: colstore.TypePeakMap},
		},
		Metadata: map[string]any{"generator": "bench", "seed": seed},
	}
	missing := func(v any) any {
		if rng.Intn(20) == 0 {
			return nil
		}
		return v
	}
	for i := 0; i < rows; i++ {
		t.Data = append(t.Data, []any{
			missing(i),
			missing(rng.Float64()),
			missing(rng.Intn(2) == 0),
			fmt.Sprintf("PEPTIDE%d", rng.Intn(rows/4+1)),
			[]any{rng.Intn(3), "Oxidation"},
			maps[rng.Intn(len(maps))],
		})
	}
	return t
}
