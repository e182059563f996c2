package run

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/ticpath/internal/catalog"
	"github.com/John-Robertt/ticpath/internal/config"
	"github.com/John-Robertt/ticpath/internal/domain"
)

type recordObserver struct {
	mu sync.Mutex

	startCalls int
	phases     []string
	tables     []string
	progress   map[string]int
}

func (o *recordObserver) OnStart(eff config.EffectiveConfig) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.startCalls++
}

func (o *recordObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, name)
}

func (o *recordObserver) OnTableLoaded(idx, total int, t domain.LookupTable, dur time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.tables = append(o.tables, t.Name)
}

func (o *recordObserver) OnProgress(catalog string, done, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.progress == nil {
		o.progress = map[string]int{}
	}
	if done > total {
		panic("done > total")
	}
	o.progress[catalog] = done
}

func TestExecuteWithObserver_EmitsPhaseEvents(t *testing.T) {
	f := newFixture(t)
	obs := &recordObserver{}

	rr := ExecuteWithObserver(context.Background(), f.eff, Deps{Catalogs: catalog.DefaultRegistry(), Store: f.store, Mounter: &stubMounter{}}, obs)
	if rr.Summary.Failed != 0 {
		t.Fatalf("不期望失败：%+v", rr.Items)
	}

	if obs.startCalls != 1 {
		t.Fatalf("OnStart 应调用 1 次，实际 %d", obs.startCalls)
	}
	wantPhases := []string{"mount", "catalog", "lookup", "resolve", "write"}
	if !reflect.DeepEqual(obs.phases, wantPhases) {
		t.Fatalf("阶段不符：%v", obs.phases)
	}
	wantTables := []string{"sector1lookup.csv", "sector2lookup.csv", "sector3lookup.csv"}
	if !reflect.DeepEqual(obs.tables, wantTables) {
		t.Fatalf("表加载事件不符：%v", obs.tables)
	}
	if obs.progress["justesen"] != 2 || obs.progress["villanova"] != 2 {
		t.Fatalf("进度事件不符：%v", obs.progress)
	}
}

func TestExecuteWithObserver_StopsAfterFailedPhase(t *testing.T) {
	f := newFixture(t)
	f.eff.Lookup.To = 9
	f.eff.Bucket.Mount = false
	obs := &recordObserver{}

	_ = ExecuteWithObserver(context.Background(), f.eff, Deps{Catalogs: catalog.DefaultRegistry(), Store: f.store}, obs)
	if !reflect.DeepEqual(obs.phases, []string{"catalog"}) {
		t.Fatalf("lookup 失败后不应再有阶段事件：%v", obs.phases)
	}
	if len(obs.tables) != 3 {
		t.Fatalf("失败前已加载 3 张表：%v", obs.tables)
	}
}
