package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/John-Robertt/ticpath/internal/bucket"
	"github.com/John-Robertt/ticpath/internal/catalog"
	"github.com/John-Robertt/ticpath/internal/config"
	"github.com/John-Robertt/ticpath/internal/domain"
	"github.com/John-Robertt/ticpath/internal/infra/fsx"
	"github.com/John-Robertt/ticpath/internal/lookup"
	"github.com/John-Robertt/ticpath/internal/mount"
	"github.com/John-Robertt/ticpath/internal/output"
	"github.com/John-Robertt/ticpath/internal/resolve"
)

// Deps 是 run 所需的外部依赖（便于测试注入）。
type Deps struct {
	Catalogs catalog.Registry
	// Store 为 nil 时按 eff.Bucket 构造。
	Store bucket.Store
	// Mounter 为 nil 时跳过挂载（即使 eff.Bucket.Mount=true）。
	Mounter mount.Mounter
}

// Execute 执行一次 run，并返回对外稳定的 RunReport。
//
// 任一阶段失败即中止：报告中追加一条 id=="" 的合成失败条目（带 error_code）。
// 未命中的 ID 不算失败，只是 status=missing。
func Execute(ctx context.Context, eff config.EffectiveConfig, deps Deps) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, deps, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, deps Deps, obs Observer) domain.RunReport {
	if obs == nil {
		obs = nopObserver{}
	}
	obs.OnStart(eff)

	rr := domain.RunReport{
		Path:      eff.Bucket.Dir,
		Output:    eff.Output,
		DryRun:    eff.DryRun,
		StartedAt: time.Now().UTC(),
		Catalogs:  make([]domain.CatalogSummary, 0, len(eff.Catalogs)),
		Items:     make([]domain.ItemResult, 0, 256),
	}
	fail := func(code string, err error) domain.RunReport {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			code = domain.ErrCodeCanceled
		}
		rr.Items = append(rr.Items, syntheticFailed(code, err.Error()))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}

	store := deps.Store
	if store == nil {
		s, err := bucket.New(eff.Bucket.StoreConfig())
		if err != nil {
			return fail(domain.ErrCodeConfigInvalid, err)
		}
		store = s
	}
	rr.Path = store.Describe()

	// 1) mount
	if eff.Bucket.Kind == bucket.KindFS && eff.Bucket.Mount && deps.Mounter != nil {
		started := time.Now()
		res, err := deps.Mounter.Mount(ctx, mount.Spec{
			Binary:       eff.Bucket.Gcsfuse,
			Bucket:       eff.Bucket.Name,
			Dir:          eff.Bucket.Dir,
			ImplicitDirs: eff.Bucket.ImplicitDirs,
			ExtraArgs:    eff.Bucket.GcsfuseArgs,
		})
		if err != nil {
			return fail(domain.ErrCodeMountFailed, err)
		}
		obs.OnPhaseDone("mount", map[string]any{
			"dir":             res.Dir,
			"already_mounted": res.AlreadyMounted,
		}, time.Since(started))
	}

	// 2) catalog
	started := time.Now()
	catalogs := make([]domain.Catalog, 0, len(eff.Catalogs))
	ids := 0
	for _, c := range eff.Catalogs {
		if err := ctx.Err(); err != nil {
			return fail(domain.ErrCodeCanceled, err)
		}
		if _, ok := deps.Catalogs.Get(c.Format); !ok {
			return fail(domain.ErrCodeConfigInvalid, fmt.Errorf("星表 %q 的格式未知：%q", c.Name, c.Format))
		}
		cat, err := catalog.LoadFile(deps.Catalogs, catalog.Spec{
			Name:   c.Name,
			Path:   c.Path,
			Format: c.Format,
			Filter: c.Filter,
			MagMin: c.MagMin,
			MagMax: c.MagMax,
		})
		if err != nil {
			return fail(domain.ErrCodeCatalogFailed, err)
		}
		catalogs = append(catalogs, cat)
		rr.Catalogs = append(rr.Catalogs, domain.CatalogSummary{
			Name:     cat.Name,
			Format:   cat.Format,
			Path:     cat.Path,
			Total:    cat.Total,
			Selected: len(cat.Entries),
		})
		ids += len(cat.Entries)
	}
	obs.OnPhaseDone("catalog", map[string]any{
		"catalogs": len(catalogs),
		"ids":      ids,
	}, time.Since(started))

	// 3) lookup
	started = time.Now()
	sectors, discovered, err := selectSectors(ctx, store, eff.Lookup)
	if err != nil {
		return fail(domain.ErrCodeLookupFailed, err)
	}
	tableStarted := time.Now()
	tables, err := lookup.LoadAll(ctx, store, sectors, eff.Lookup.Pattern, func(idx, total int, t domain.LookupTable) {
		obs.OnTableLoaded(idx, total, t, time.Since(tableStarted))
		tableStarted = time.Now()
	})
	if err != nil {
		return fail(domain.ErrCodeLookupFailed, err)
	}
	rows := 0
	for i := range tables {
		rows += len(tables[i].Rows)
	}
	rr.Summary.Tables = len(tables)
	rr.Summary.Rows = rows
	obs.OnPhaseDone("lookup", map[string]any{
		"tables":     len(tables),
		"rows":       rows,
		"discovered": discovered,
	}, time.Since(started))

	// 4) resolve
	started = time.Now()
	res, paths := resolve.Resolver{
		Tables:     tables,
		OnProgress: obs.OnProgress,
	}.All(catalogs)
	for _, r := range res {
		rr.Items = append(rr.Items, itemFromResolution(r))
	}
	obs.OnPhaseDone("resolve", map[string]any{
		"ids":   len(res),
		"paths": len(paths),
	}, time.Since(started))

	// 5) write
	if !eff.DryRun {
		started = time.Now()
		if err := output.WritePathList(eff.Output, paths); err != nil {
			if fsx.IsPathTypeConflict(err) {
				err = fmt.Errorf("输出路径已存在且不是普通文件：%w", err)
			}
			return fail(domain.ErrCodeWriteFailed, err)
		}
		obs.OnPhaseDone("write", map[string]any{
			"output": eff.Output,
			"lines":  len(paths),
		}, time.Since(started))
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

// selectSectors 决定要加载的 sector：默认 [from, to]；
// discover=true 时改为 bucket 中实际存在且落在 [from, to] 内的 sector（后端不支持列举时回退到区间）。
func selectSectors(ctx context.Context, store bucket.Store, lk config.Lookup) (sectors []int, discovered bool, err error) {
	all := lookup.Sectors(lk.From, lk.To)
	if !lk.Discover {
		return all, false, nil
	}
	names, err := store.List(ctx)
	if errors.Is(err, bucket.ErrListUnsupported) {
		return all, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("列举 bucket 失败：%w", err)
	}
	found, err := lookup.Discover(lk.Pattern, names)
	if err != nil {
		return nil, false, err
	}
	out := make([]int, 0, len(found))
	for _, s := range found {
		if s >= lk.From && s <= lk.To {
			out = append(out, s)
		}
	}
	return out, true, nil
}

func itemFromResolution(r domain.Resolution) domain.ItemResult {
	it := domain.ItemResult{
		ID:      r.ID.String(),
		Catalog: r.Catalog,
		Status:  domain.StatusMissing,
		Paths:   r.Paths,
	}
	if len(r.Paths) > 0 {
		it.Status = domain.StatusResolved
	}
	return it
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
		Paths:     []string{},
	}
}

type nopObserver struct{}

func (nopObserver) OnStart(config.EffectiveConfig) {}
func (nopObserver) OnPhaseDone(string, map[string]any, time.Duration) {}
func (nopObserver) OnTableLoaded(int, int, domain.LookupTable, time.Duration) {}
func (nopObserver) OnProgress(string, int, int) {}
