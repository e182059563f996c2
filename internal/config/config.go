package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/ticpath/internal/bucket"
	"github.com/John-Robertt/ticpath/internal/lookup"
)

const (
	// ErrCodeNotFound 表示 --config 指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// FileName 是 cwd 下自动发现的配置文件名。
const FileName = "ticpath.json"

const (
	DefaultBucketName    = "tess-goddard-lcs"
	DefaultMountDir      = "~/tesslcs"
	DefaultGcsfuse       = "gcsfuse"
	DefaultS3Endpoint    = "storage.googleapis.com"
	DefaultOutput        = "eb_filepath_list_justesen_tessebs_with_duplicates.txt"
	DefaultProgressEvery = 10
	DefaultLogLevel      = "info"
)

// 测试中可替换。
var homeDirFunc = os.UserHomeDir

// CLIArgs 是 `ticpath run` 暴露的参数；Output 为空表示未指定。
type CLIArgs struct {
	ConfigPath string
	Output     string
	DryRun     bool
}

// FileConfig 对应 ticpath.json 的解析结构。
type FileConfig struct {
	Bucket        *BucketConfig   `json:"bucket"`
	Catalogs      []CatalogConfig `json:"catalogs"`
	Lookup        *LookupConfig   `json:"lookup"`
	Output        string          `json:"output"`
	ProgressEvery *int            `json:"progress_every"`
	LogLevel      string          `json:"log_level"`
}

type BucketConfig struct {
	Kind         string   `json:"kind"`
	Name         string   `json:"name"`
	Dir          string   `json:"dir"`
	Mount        *bool    `json:"mount"`
	ImplicitDirs *bool    `json:"implicit_dirs"`
	Gcsfuse      string   `json:"gcsfuse"`
	GcsfuseArgs  []string `json:"gcsfuse_args"`
	BaseURL      string   `json:"base_url"`
	ProxyURL     string   `json:"proxy_url"`
	Endpoint     string   `json:"endpoint"`
	Region       string   `json:"region"`
	Secure       *bool    `json:"secure"`
	Prefix       string   `json:"prefix"`
}

type CatalogConfig struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Format string   `json:"format"`
	MagMin *float64 `json:"mag_min"`
	MagMax *float64 `json:"mag_max"`
}

type LookupConfig struct {
	From     *int   `json:"from"`
	To       *int   `json:"to"`
	Pattern  string `json:"pattern"`
	Discover bool   `json:"discover"`
}

// EffectiveConfig 是合并并规范化后的最终配置（路径均为绝对路径）。
type EffectiveConfig struct {
	// ConfigPath 是参与合并的配置文件；未读取到文件时为空。
	ConfigPath string

	Bucket   Bucket
	Catalogs []Catalog
	Lookup   Lookup

	Output        string
	DryRun        bool
	ProgressEvery int
	LogLevel      string
}

type Bucket struct {
	Kind         string
	Name         string
	Dir          string
	Mount        bool
	ImplicitDirs bool
	Gcsfuse      string
	// GcsfuseArgs 插在 bucket 名之前原样传给 gcsfuse。
	GcsfuseArgs  []string
	BaseURL      string
	ProxyURL     string
	Endpoint     string
	Region       string
	Secure       bool
	Prefix       string
	AccessKey    string
	SecretKey    string
}

// Catalog 描述一份输入星表；Filter=false 表示不做星等过滤。
type Catalog struct {
	Name   string
	Path   string
	Format string
	Filter bool
	MagMin float64
	MagMax float64
}

type Lookup struct {
	From     int
	To       int
	Pattern  string
	Discover bool
}

// StoreConfig 转换为 bucket.New 的参数。
func (b Bucket) StoreConfig() bucket.Config {
	return bucket.Config{
		Kind:      b.Kind,
		Dir:       b.Dir,
		BaseURL:   b.BaseURL,
		ProxyURL:  b.ProxyURL,
		Endpoint:  b.Endpoint,
		Region:    b.Region,
		Bucket:    b.Name,
		Prefix:    b.Prefix,
		AccessKey: b.AccessKey,
		SecretKey: b.SecretKey,
		Secure:    b.Secure,
	}
}

// DefaultCatalogs 复现最初的两份输入：Justesen 表（10 < Tmag < 15）与 Villanova 表（不过滤）。
func DefaultCatalogs() []CatalogConfig {
	lo, hi := 10.0, 15.0
	return []CatalogConfig{
		{Name: "justesen", Path: "justesen_albrecht_table2_748ebs.txt", Format: "justesen", MagMin: &lo, MagMax: &hi},
		{Name: "villanova", Path: "tess_ebs_villanova_tmag_10-15.csv", Format: "villanova"},
	}
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与环境变量、CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 提供 --config：该文件必须存在
// 2) 否则尝试 <cwd>/ticpath.json（可选；不存在时全部使用默认值）
//
// 覆盖优先级：CLI > 环境变量 > 配置文件 > 内置默认。
// env 为 nil 时使用进程环境（os.LookupEnv）。
func LoadEffective(cwd string, cli CLIArgs, env Env) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}
	if env == nil {
		env = os.LookupEnv
	}

	var (
		cfgPath string
		fc      FileConfig
		exists  bool
	)
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
	} else {
		cfgPath = filepath.Join(cwdAbs, FileName)
		fc, exists, err = readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
	}

	eff, err := merge(cwdAbs, cli, env, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if exists {
		eff.ConfigPath = cfgPath
	}
	return eff, nil
}

func merge(cwd string, cli CLIArgs, env Env, fc FileConfig) (EffectiveConfig, error) {
	b, err := mergeBucket(cwd, env, fc.Bucket)
	if err != nil {
		return EffectiveConfig{}, err
	}

	cats, err := mergeCatalogs(cwd, fc.Catalogs)
	if err != nil {
		return EffectiveConfig{}, err
	}

	lk := Lookup{From: lookup.DefaultFrom, To: lookup.DefaultTo, Pattern: lookup.DefaultPattern}
	if fc.Lookup != nil {
		if fc.Lookup.From != nil {
			lk.From = *fc.Lookup.From
		}
		if fc.Lookup.To != nil {
			lk.To = *fc.Lookup.To
		}
		if p := strings.TrimSpace(fc.Lookup.Pattern); p != "" {
			lk.Pattern = p
		}
		lk.Discover = fc.Lookup.Discover
	}
	// sector 从 1 开始编号。
	if lk.From < 1 || lk.To < 1 {
		return EffectiveConfig{}, fmt.Errorf("lookup.from/to 必须 >= 1：%d..%d", lk.From, lk.To)
	}
	if lk.From > lk.To {
		return EffectiveConfig{}, fmt.Errorf("lookup.from 不能大于 lookup.to：%d > %d", lk.From, lk.To)
	}
	if _, err := lookup.PatternRE(lk.Pattern); err != nil {
		return EffectiveConfig{}, err
	}

	// output：CLI > env > config > 默认
	output := DefaultOutput
	if v := strings.TrimSpace(fc.Output); v != "" {
		output = v
	}
	if v, ok := lookupEnv(env, EnvOutput); ok {
		output = v
	}
	if v := strings.TrimSpace(cli.Output); v != "" {
		output = v
	}

	progress := DefaultProgressEvery
	if fc.ProgressEvery != nil {
		progress = *fc.ProgressEvery
	}
	if progress < 0 {
		return EffectiveConfig{}, fmt.Errorf("progress_every 不能为负：%d", progress)
	}

	level := DefaultLogLevel
	if v := strings.TrimSpace(fc.LogLevel); v != "" {
		level = v
	}
	if v, ok := lookupEnv(env, EnvLogLevel); ok {
		level = v
	}
	level = strings.ToLower(level)
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return EffectiveConfig{}, fmt.Errorf("log_level 只能是 debug/info/warn/error，实际是 %q", level)
	}

	return EffectiveConfig{
		Bucket:        b,
		Catalogs:      cats,
		Lookup:        lk,
		Output:        absCleanFrom(cwd, output),
		DryRun:        cli.DryRun,
		ProgressEvery: progress,
		LogLevel:      level,
	}, nil
}

func mergeBucket(cwd string, env Env, bc *BucketConfig) (Bucket, error) {
	if bc == nil {
		bc = &BucketConfig{}
	}
	b := Bucket{
		Kind:     strings.ToLower(strings.TrimSpace(bc.Kind)),
		Name:     strings.TrimSpace(bc.Name),
		Dir:      strings.TrimSpace(bc.Dir),
		Gcsfuse:  strings.TrimSpace(bc.Gcsfuse),
		BaseURL:  strings.TrimSpace(bc.BaseURL),
		ProxyURL: strings.TrimSpace(bc.ProxyURL),
		Endpoint: strings.TrimSpace(bc.Endpoint),
		Region:   strings.TrimSpace(bc.Region),
		Prefix:   strings.TrimSpace(bc.Prefix),
	}
	if v, ok := lookupEnv(env, EnvBucketKind); ok {
		b.Kind = strings.ToLower(v)
	}
	if v, ok := lookupEnv(env, EnvBucketDir); ok {
		b.Dir = v
	}
	if v, ok := lookupEnv(env, EnvS3Endpoint); ok {
		b.Endpoint = v
	}
	b.AccessKey, _ = lookupEnv(env, EnvS3AccessKey)
	b.SecretKey, _ = lookupEnv(env, EnvS3SecretKey)

	if b.Kind == "" {
		b.Kind = bucket.KindFS
	}
	if b.Name == "" {
		b.Name = DefaultBucketName
	}

	switch b.Kind {
	case bucket.KindFS:
		if b.Dir == "" {
			b.Dir = DefaultMountDir
		}
		dir, err := expandHome(b.Dir)
		if err != nil {
			return Bucket{}, err
		}
		b.Dir = absCleanFrom(cwd, dir)
		b.Mount = boolOr(bc.Mount, true)
		b.ImplicitDirs = boolOr(bc.ImplicitDirs, true)
		if b.Gcsfuse == "" {
			b.Gcsfuse = DefaultGcsfuse
		}
		for i, a := range bc.GcsfuseArgs {
			if strings.TrimSpace(a) == "" {
				return Bucket{}, fmt.Errorf("bucket.gcsfuse_args[%d] 不能为空", i)
			}
			b.GcsfuseArgs = append(b.GcsfuseArgs, a)
		}
	case bucket.KindHTTP:
		if b.BaseURL == "" {
			b.BaseURL = bucket.DefaultHTTPBase + b.Name
		}
		if err := validateHTTPURL("bucket.base_url", b.BaseURL); err != nil {
			return Bucket{}, err
		}
	case bucket.KindS3:
		if b.Endpoint == "" {
			b.Endpoint = DefaultS3Endpoint
		}
		if strings.Contains(b.Endpoint, "://") {
			return Bucket{}, fmt.Errorf("bucket.endpoint 不应包含 scheme：%q", b.Endpoint)
		}
		b.Secure = boolOr(bc.Secure, true)
		if (b.AccessKey == "") != (b.SecretKey == "") {
			return Bucket{}, fmt.Errorf("%s 与 %s 必须同时设置", EnvS3AccessKey, EnvS3SecretKey)
		}
	default:
		return Bucket{}, fmt.Errorf("bucket.kind 只能是 fs/http/s3，实际是 %q", b.Kind)
	}

	if b.Kind != bucket.KindFS && bc.Mount != nil && *bc.Mount {
		return Bucket{}, fmt.Errorf("bucket.mount 仅适用于 kind=fs")
	}
	if b.Kind != bucket.KindFS && len(bc.GcsfuseArgs) > 0 {
		return Bucket{}, fmt.Errorf("bucket.gcsfuse_args 仅适用于 kind=fs")
	}
	if b.ProxyURL != "" {
		if err := validateHTTPURL("bucket.proxy_url", b.ProxyURL); err != nil {
			return Bucket{}, err
		}
	}
	return b, nil
}

func mergeCatalogs(cwd string, in []CatalogConfig) ([]Catalog, error) {
	if in == nil {
		in = DefaultCatalogs()
	}
	if len(in) == 0 {
		return nil, errors.New("catalogs 不能为空")
	}

	seen := map[string]struct{}{}
	out := make([]Catalog, 0, len(in))
	for i, cc := range in {
		c := Catalog{
			Name:   strings.TrimSpace(cc.Name),
			Path:   strings.TrimSpace(cc.Path),
			Format: strings.ToLower(strings.TrimSpace(cc.Format)),
			MagMin: math.Inf(-1),
			MagMax: math.Inf(1),
		}
		if c.Path == "" {
			return nil, fmt.Errorf("catalogs[%d].path 不能为空", i)
		}
		if c.Format == "" {
			return nil, fmt.Errorf("catalogs[%d].format 不能为空", i)
		}
		if c.Name == "" {
			c.Name = strings.TrimSuffix(filepath.Base(c.Path), filepath.Ext(c.Path))
		}
		if _, ok := seen[c.Name]; ok {
			return nil, fmt.Errorf("catalogs[%d].name 重复：%q", i, c.Name)
		}
		seen[c.Name] = struct{}{}

		if cc.MagMin != nil {
			c.Filter = true
			c.MagMin = *cc.MagMin
		}
		if cc.MagMax != nil {
			c.Filter = true
			c.MagMax = *cc.MagMax
		}
		if c.Filter && !(c.MagMin < c.MagMax) {
			return nil, fmt.Errorf("catalogs[%d] 星等区间无效：(%v, %v)", i, c.MagMin, c.MagMax)
		}

		p, err := expandHome(c.Path)
		if err != nil {
			return nil, err
		}
		c.Path = absCleanFrom(cwd, p)
		out = append(out, c)
	}
	return out, nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s 无效：%q", field, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s 必须是 http/https：%q", field, raw)
	}
	return nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// expandHome 展开前导 "~"（仅当前用户）。
func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := homeDirFunc()
	if err != nil {
		return "", fmt.Errorf("无法展开 %q：%w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
