package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvOutput      = "TICPATH_OUTPUT"
	EnvBucketKind  = "TICPATH_BUCKET_KIND"
	EnvBucketDir   = "TICPATH_BUCKET_DIR"
	EnvS3Endpoint  = "TICPATH_S3_ENDPOINT"
	EnvS3AccessKey = "TICPATH_S3_ACCESS_KEY"
	EnvS3SecretKey = "TICPATH_S3_SECRET_KEY"
	EnvLogLevel    = "TICPATH_LOG_LEVEL"
)

// Env 查询一个环境变量（签名同 os.LookupEnv）。
type Env func(key string) (string, bool)

// EnvLookup 返回“进程环境 > <dir>/.env.local > <dir>/.env”的查询函数。
//
// .env 文件只补充缺失的变量，从不覆盖真实环境；文件不存在时忽略，解析失败返回错误。
func EnvLookup(dir string) (Env, error) {
	files := map[string]string{}
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		m, err := godotenv.Read(p)
		if err != nil {
			return nil, &Error{Code: ErrCodeInvalid, Path: p, Err: err}
		}
		for k, v := range m {
			files[k] = v
		}
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := files[key]
		return v, ok
	}, nil
}

// lookupEnv 读取非空的环境变量（空白值视为未设置）。
func lookupEnv(env Env, key string) (string, bool) {
	v, ok := env(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
