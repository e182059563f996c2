package main

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/John-Robertt/ticpath/internal/app/run"
	"github.com/John-Robertt/ticpath/internal/config"
	"github.com/John-Robertt/ticpath/internal/domain"
)

var _ run.Observer = (*logObserver)(nil)

// logObserver 在非交互环境下把运行事件写成结构化日志（stderr）。
type logObserver struct {
	log   *zap.SugaredLogger
	every int
}

func newLogObserver(log *zap.SugaredLogger, every int) *logObserver {
	return &logObserver{log: log, every: every}
}

func (o *logObserver) OnStart(eff config.EffectiveConfig) {
	o.log.Infow("run start",
		"bucket_kind", eff.Bucket.Kind,
		"bucket", eff.Bucket.Name,
		"catalogs", len(eff.Catalogs),
		"sectors_from", eff.Lookup.From,
		"sectors_to", eff.Lookup.To,
		"output", eff.Output,
		"dry_run", eff.DryRun,
	)
}

func (o *logObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	kv := make([]any, 0, 4+2*len(fields))
	kv = append(kv, "phase", name, "dur", dur)
	kv = append(kv, sortedKV(fields)...)
	o.log.Infow("phase done", kv...)
}

func (o *logObserver) OnTableLoaded(idx, total int, t domain.LookupTable, dur time.Duration) {
	o.log.Debugw("lookup table loaded",
		"idx", idx,
		"total", total,
		"sector", t.Sector,
		"name", t.Name,
		"rows", len(t.Rows),
		"dur", dur,
	)
}

func (o *logObserver) OnProgress(catalog string, done, total int) {
	if !shouldReport(o.every, done, total) {
		return
	}
	o.log.Infow("resolve progress", "catalog", catalog, "done", done, "total", total)
}

func sortedKV(fields map[string]any) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}
