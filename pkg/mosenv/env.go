// Package mosenv binds process configuration from environment variables,
// optionally seeded from a local .env file.
package mosenv

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/cronos-labs/xdr/common/console"
)

// GetOrDefault returns os.Getenv(key), or defaultValue when unset/blank.
func GetOrDefault(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}

	return defaultValue
}

// GetBoolOrDefault parses os.Getenv(key) as a bool, or returns defaultValue.
func GetBoolOrDefault(key string, defaultValue bool) bool {
	val, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}

	return val
}

// GetIntOrDefault parses os.Getenv(key) as an int64, or returns defaultValue.
func GetIntOrDefault(key string, defaultValue int64) int64 {
	val, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return defaultValue
	}

	return val
}

// GetFloatOrDefault parses os.Getenv(key) as a float64, or returns defaultValue.
func GetFloatOrDefault(key string, defaultValue float64) float64 {
	val, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}

	return val
}

// LocalEnvConfig records whether a local .env file was loaded.
type LocalEnvConfig struct {
	Initialized bool
}

var (
	localEnvConfig     *LocalEnvConfig
	localEnvConfigOnce sync.Once
)

// InitLocalEnvConfig loads a .env file once per process when ENV_NAME=local
// (the default). It never errors: a missing .env file just means the
// environment is expected to already be populated (container, CI, ...).
func InitLocalEnvConfig() *LocalEnvConfig {
	version := GetOrDefault("VERSION", "NO-VERSION")
	fmt.Println(console.Title("XDR Version: [31m" + version + "[0m"))

	envName := GetOrDefault("ENV_NAME", "local")
	fmt.Printf("ENVIRONMENT NAME [31m(%s)[0m\n", envName)

	if envName == "local" {
		localEnvConfigOnce.Do(func() {
			if err := godotenv.Load(); err != nil {
				fmt.Println("Skipping .env file. Current env", envName)
				localEnvConfig = &LocalEnvConfig{Initialized: false}
			} else {
				fmt.Println("Env vars loaded from .env file on process", os.Getpid())
				localEnvConfig = &LocalEnvConfig{Initialized: true}
			}
		})
	}

	fmt.Println(console.Line(console.DefaultLineSize))

	return localEnvConfig
}

// SetFromEnvVars populates the fields of s (a pointer to a struct) from the
// environment variable named by each field's `env` tag. Supported kinds:
// string, bool, int and uint families and float32/float64.
func SetFromEnvVars(s any) error {
	v := reflect.ValueOf(s)

	t := v.Type()
	if t.Kind() != reflect.Ptr {
		return errors.New("s must be a pointer")
	}

	e := t.Elem()
	for i := 0; i < e.NumField(); i++ {
		f := e.Field(i)

		tag, ok := f.Tag.Lookup("env")
		if !ok {
			continue
		}

		key := strings.Split(tag, ",")[0]

		fv := v.Elem().FieldByName(f.Name)
		if !fv.CanSet() {
			continue
		}

		switch fv.Kind() {
		case reflect.Bool:
			fv.SetBool(GetBoolOrDefault(key, fv.Bool()))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fv.SetInt(GetIntOrDefault(key, fv.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if u, err := strconv.ParseUint(os.Getenv(key), 10, fv.Type().Bits()); err == nil {
				fv.SetUint(u)
			}
		case reflect.Float32, reflect.Float64:
			fv.SetFloat(GetFloatOrDefault(key, fv.Float()))
		default:
			fv.SetString(GetOrDefault(key, fv.String()))
		}
	}

	return nil
}
