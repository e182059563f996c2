package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/ticpath/internal/app/run"
	"github.com/John-Robertt/ticpath/internal/catalog"
	"github.com/John-Robertt/ticpath/internal/config"
	"github.com/John-Robertt/ticpath/internal/domain"
	"github.com/John-Robertt/ticpath/internal/mount"
	"github.com/John-Robertt/ticpath/internal/output"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	case "count":
		if code := countCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	cwdAbs, _ := filepath.Abs(cwd)

	env, err := config.EnvLookup(cwdAbs)
	if err != nil {
		emitReport(reportForConfigError(cwdAbs, ra, err))
		return 1
	}
	eff, err := config.LoadEffective(cwdAbs, config.CLIArgs{
		ConfigPath: ra.ConfigPath,
		Output:     ra.Output,
		DryRun:     ra.DryRun,
	}, env)
	if err != nil {
		emitReport(reportForConfigError(cwdAbs, ra, err))
		return 1
	}

	logger, err := newLogger(eff.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败：%v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()
	if eff.ConfigPath != "" {
		log.Debugw("config loaded", "path", eff.ConfigPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		ui := newProgressUI(progressW, eff.ProgressEvery)
		defer ui.Close()
		obs = ui
	} else {
		obs = newLogObserver(log, eff.ProgressEvery)
	}

	rr := run.ExecuteWithObserver(ctx, eff, run.Deps{
		Catalogs: catalog.DefaultRegistry(),
		Mounter:  mount.Gcsfuse{},
	}, obs)
	if !interactive && rr.Summary.Failed > 0 {
		for _, it := range rr.Items {
			if it.Status == domain.StatusFailed {
				log.Errorw("run failed", "error_code", it.ErrorCode, "error", it.ErrorMsg)
			}
		}
	}

	emitReport(rr)
	if interactive && !eff.DryRun && rr.Summary.Failed == 0 {
		fmt.Fprintf(progressW, "out: %s\n", eff.Output)
	}
	if rr.Summary.Failed == 0 {
		return 0
	}
	return 1
}

func countCmd(args []string) int {
	if len(args) == 1 && isHelp(args[0]) {
		printCountUsage()
		return 0
	}
	if len(args) != 1 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintln(os.Stderr, "参数错误：count 需要且仅需要一个文件路径")
		fmt.Fprintln(os.Stderr)
		printCountUsage()
		return 2
	}
	paths, err := output.ReadPathList(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取路径清单失败：%v\n", err)
		return 1
	}
	fmt.Fprintln(os.Stdout, len(paths))
	return 0
}

type runArgs struct {
	ConfigPath string
	Output     string
	DryRun     bool
}

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--config" || a == "--output":
			if i+1 >= len(args) {
				return runArgs{}, fmt.Errorf("%s 需要一个值", a)
			}
			i++
			if err := ra.set(a[2:], args[i]); err != nil {
				return runArgs{}, err
			}
		case strings.HasPrefix(a, "--config="):
			if err := ra.set("config", strings.TrimPrefix(a, "--config=")); err != nil {
				return runArgs{}, err
			}
		case strings.HasPrefix(a, "--output="):
			if err := ra.set("output", strings.TrimPrefix(a, "--output=")); err != nil {
				return runArgs{}, err
			}
		case a == "--dry-run":
			ra.DryRun = true
		case strings.HasPrefix(a, "--dry-run="):
			v := strings.TrimPrefix(a, "--dry-run=")
			switch v {
			case "true":
				ra.DryRun = true
			case "false":
				ra.DryRun = false
			default:
				return runArgs{}, fmt.Errorf("--dry-run 只能是 true 或 false，实际是 %q", v)
			}
		case strings.HasPrefix(a, "-"):
			return runArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			return runArgs{}, fmt.Errorf("多余的参数 %q", a)
		}
	}
	return ra, nil
}

func (ra *runArgs) set(name, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("--%s 不能为空", name)
	}
	switch name {
	case "config":
		ra.ConfigPath = v
	case "output":
		ra.Output = v
	}
	return nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  ticpath run [--config file] [--output file] [--dry-run]
  ticpath count <file>

命令：
  run    挂载 bucket，读取星表与 lookup 表，输出 TIC ID 对应的文件路径清单
  count  统计路径清单的行数

使用 "ticpath run --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  ticpath run [--config file] [--output file] [--dry-run]

参数：
  --config    配置文件（必须存在）；未指定时读取 ./ticpath.json（可选）
  --output    路径清单输出文件（覆盖 TICPATH_OUTPUT 与配置文件）
  --dry-run   只解析不写出清单
  -h, --help  显示帮助
`)
}

func printCountUsage() {
	fmt.Fprint(os.Stdout, `用法：
  ticpath count <file>
`)
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		z := zap.NewDevelopmentConfig()
		z.OutputPaths = []string{"stderr"}
		return z.Build()
	}
	z := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	z.Level = lvl
	return z.Build()
}

func summaryLine(rr domain.RunReport) string {
	s := rr.Summary
	return fmt.Sprintf("完成：ids=%d resolved=%d missing=%d failed=%d paths=%d",
		s.IDs, s.Resolved, s.Missing, s.Failed, s.Paths,
	)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintln(os.Stdout, summaryLine(rr))
		for _, it := range rr.Items {
			if it.Status != domain.StatusFailed {
				continue
			}
			fmt.Fprintf(os.Stderr, "%s: %s\n", it.ErrorCode, it.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(os.Stderr, summaryLine(rr))
}

func reportForConfigError(cwdAbs string, ra runArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	code := config.Code(err)
	if code == "" {
		code = domain.ErrCodeConfigInvalid
	}
	rr := domain.RunReport{
		Path:       cwdAbs,
		Output:     ra.Output,
		DryRun:     ra.DryRun,
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: code,
			ErrorMsg:  err.Error(),
			Paths:     []string{},
		}},
	}
	rr.Finalize()
	return rr
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}
