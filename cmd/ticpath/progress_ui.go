package main

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/John-Robertt/ticpath/internal/app/run"
	"github.com/John-Robertt/ticpath/internal/config"
	"github.com/John-Robertt/ticpath/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端的进度输出。
//
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - keepalive：lookup 表走网络时可能很慢，长时间无输出会定期打印一行
type progressUI struct {
	w     io.Writer
	every int

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	phase       string
	tablesDone  int
	tablesTotal int

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newProgressUI(w io.Writer, every int) *progressUI {
	return &progressUI{
		w:                  w,
		every:              every,
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	mode := "write"
	if eff.DryRun {
		mode = "dry-run"
	}

	fmt.Fprintf(p.w, "[%s] ticpath run (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	if eff.ConfigPath != "" {
		fmt.Fprintf(p.w, "  config: %s\n", eff.ConfigPath)
	}
	fmt.Fprintf(p.w, "  bucket: %s\n", formatBucket(eff.Bucket))
	for _, c := range eff.Catalogs {
		fmt.Fprintf(p.w, "  catalog: %s (%s) %s%s\n", c.Name, c.Format, truncate(c.Path, 120), formatFilter(c))
	}
	lk := eff.Lookup
	discover := ""
	if lk.Discover {
		discover = " discover=on"
	}
	fmt.Fprintf(p.w, "  lookup: %s sectors=%d..%d%s\n", lk.Pattern, lk.From, lk.To, discover)

	fmt.Fprintln(p.w, "输出:")
	if eff.DryRun {
		fmt.Fprintln(p.w, "  out: (dry-run，不写入)")
	} else {
		fmt.Fprintf(p.w, "  out: %s\n", eff.Output)
	}
	fmt.Fprintln(p.w)

	p.phase = "catalog"
	if eff.Bucket.Kind == "fs" && eff.Bucket.Mount {
		p.phase = "mount"
	}
	p.lastPrinted = time.Now()
	if !p.tickerStarted {
		p.startTickerLocked()
	}
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch name {
	case "mount":
		state := "mounted"
		if b, _ := fields["already_mounted"].(bool); b {
			state = "already mounted"
		}
		fmt.Fprintf(p.w, "挂载: %s %s (%s)\n", stringField(fields, "dir"), state, formatShortDuration(dur))
		p.phase = "catalog"
	case "catalog":
		fmt.Fprintf(p.w, "星表: catalogs=%d ids=%d (%s)\n",
			intField(fields, "catalogs"), intField(fields, "ids"), formatShortDuration(dur),
		)
		p.phase = "lookup"
	case "lookup":
		fmt.Fprintf(p.w, "lookup: tables=%d rows=%d (%s)\n",
			intField(fields, "tables"), intField(fields, "rows"), formatShortDuration(dur),
		)
		p.phase = "resolve"
	case "resolve":
		fmt.Fprintf(p.w, "解析: ids=%d paths=%d (%s)\n",
			intField(fields, "ids"), intField(fields, "paths"), formatShortDuration(dur),
		)
		p.phase = "write"
	case "write":
		fmt.Fprintf(p.w, "写入: lines=%d (%s)\n", intField(fields, "lines"), formatShortDuration(dur))
		p.phase = "done"
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}

	p.lastPrinted = time.Now()
}

func (p *progressUI) OnTableLoaded(idx, total int, t domain.LookupTable, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.phase = "lookup"
	p.tablesDone = idx
	p.tablesTotal = total
	fmt.Fprintf(p.w, "[%d/%d] sector %d %s rows=%d (%s)\n",
		idx, total, t.Sector, t.Name, len(t.Rows), formatShortDuration(dur),
	)
	p.lastPrinted = time.Now()
}

func (p *progressUI) OnProgress(catalog string, done, total int) {
	if !shouldReport(p.every, done, total) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "  %s: %d/%d\n", catalog, done, total)
	p.lastPrinted = time.Now()
}

// Close 停止 keepalive ticker；可重复调用。
func (p *progressUI) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tickerStarted {
		close(p.stopCh)
		p.tickerStarted = false
	}
}

func (p *progressUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}
	stopCh := p.stopCh

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.phase != "done" && time.Since(p.lastPrinted) > threshold {
					p.printKeepaliveLocked()
				}
				p.mu.Unlock()
			case <-stopCh:
				return
			}
		}
	}()
}

func (p *progressUI) printKeepaliveLocked() {
	phase := p.phase
	elapsed := formatElapsed(time.Since(p.startedAt))
	if phase == "lookup" && p.tablesTotal > 0 {
		fmt.Fprintf(p.w, "进度: phase=lookup tables=%d/%d elapsed=%s\n", p.tablesDone, p.tablesTotal, elapsed)
	} else {
		fmt.Fprintf(p.w, "进度: phase=%s elapsed=%s\n", phase, elapsed)
	}
	p.lastPrinted = time.Now()
}

// shouldReport 决定是否输出第 done 个 ID 的进度：每 every 个一次，以及最后一个。
func shouldReport(every, done, total int) bool {
	if done == total {
		return true
	}
	return every > 0 && done%every == 0
}

func formatBucket(b config.Bucket) string {
	switch b.Kind {
	case "fs":
		mount := "off"
		if b.Mount {
			mount = "gcsfuse"
			if b.ImplicitDirs {
				mount += " --implicit-dirs"
			}
		}
		return fmt.Sprintf("fs %s -> %s (mount=%s)", b.Name, b.Dir, mount)
	case "http":
		return fmt.Sprintf("http %s (proxy=%s)", truncate(b.BaseURL, 120), formatProxy(b.ProxyURL))
	case "s3":
		auth := "anonymous"
		if b.AccessKey != "" {
			auth = "static"
		}
		prefix := ""
		if b.Prefix != "" {
			prefix = "/" + b.Prefix
		}
		return fmt.Sprintf("s3 %s%s @ %s (auth=%s)", b.Name, prefix, b.Endpoint, auth)
	default:
		return b.Kind
	}
}

func formatFilter(c config.Catalog) string {
	if !c.Filter {
		return ""
	}
	return fmt.Sprintf(" [%g < Tmag < %g]", c.MagMin, c.MagMax)
}

func formatProxy(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "on (" + truncate(raw, 120) + ")"
	}
	auth := "off"
	if u.User != nil {
		auth = "on"
	}
	return fmt.Sprintf("on (%s://%s, auth=%s)", u.Scheme, u.Host, auth)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	default:
		return 0
	}
}
