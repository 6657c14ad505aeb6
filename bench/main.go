// 压测入口：-stage a|b|c|d
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ic-timon/peakstore/bench/metrics"
	"github.com/ic-timon/peakstore/colstore"
)

type stageOpts struct {
	cfgPath string
	workDir string
	verbose bool
}

// config 每次调用返回一份新配置，各阶段可自由修改
func (o stageOpts) config() *colstore.Config {
	cfg := colstore.DefaultConfig()
	if o.cfgPath != "" {
		loaded, err := colstore.LoadConfig(o.cfgPath)
		if err != nil {
			log.Fatalf("加载配置失败: %v", err)
		}
		cfg = loaded
	}
	if o.verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("初始化日志失败: %v", err)
		}
		cfg.Logger = logger
	}
	return cfg
}

// path 返回工作目录下的容器文件路径
func (o stageOpts) path(name string) string {
	return filepath.Join(o.workDir, name)
}

func main() {
	stage := flag.String("stage", "", "压测阶段: a(写缓存容量) | b(峰图写入与色谱查询) | c(高并发读) | d(页压缩对比)")
	cfgPath := flag.String("config", "", "YAML 配置文件，缺省使用 DefaultConfig")
	reportDir := flag.String("report", metrics.ReportDir, "报告输出目录")
	verbose := flag.Bool("v", false, "输出容器日志")
	flag.Parse()

	workDir, err := os.MkdirTemp("", "peakstore-bench-")
	if err != nil {
		log.Fatalf("创建工作目录失败: %v", err)
	}
	defer os.RemoveAll(workDir)
	metrics.ReportDir = *reportDir

	opts := stageOpts{cfgPath: *cfgPath, workDir: workDir, verbose: *verbose}
	switch *stage {
	case "a":
		runStageA(opts)
	case "b":
		runStageB(opts)
	case "c":
		runStageC(opts)
	case "d":
		runStageD(opts)
	default:
		log.Fatalf("请指定 -stage a|b|c|d")
	}
	fmt.Println("压测完成")
}
