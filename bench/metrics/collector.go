// Package metrics 提供压测采样：运行时堆、容器段布局与 prometheus 计数器
package metrics

import (
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/ic-timon/peakstore/colstore"
)

// Snapshot 一次采样。容器字段仅在传入已打开的容器时填充
type Snapshot struct {
	HeapAlloc    uint64
	HeapSys      uint64
	NumGoroutine int

	FileBytes  int
	BlobBytes  uint64 // 变长数据段：str/obj blob、mz/ii 数组、rows
	IndexBytes uint64 // 其余索引段
}

// Take 采样运行时堆；c 非 nil 时附带容器文件大小与按类别汇总的段大小
func Take(c *colstore.Container) Snapshot {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s := Snapshot{
		HeapAlloc:    m.HeapAlloc,
		HeapSys:      m.HeapSys,
		NumGoroutine: runtime.NumGoroutine(),
	}
	if c == nil {
		return s
	}
	st := c.Stats()
	s.FileBytes = st.FileSize
	for name, n := range st.Sections {
		if strings.Contains(name, "_blob") || name == "rows" {
			s.BlobBytes += n
		} else {
			s.IndexBytes += n
		}
	}
	return s
}

// MB 字节数换算为 MiB
func MB[T ~int | ~uint64](n T) float64 {
	return float64(n) / 1024 / 1024
}

// Settle 触发 GC 并释放回 OS，采样前调用
func Settle() {
	runtime.GC()
	debug.FreeOSMemory()
}

// CounterValue 读取 prometheus 计数器当前值
func CounterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
