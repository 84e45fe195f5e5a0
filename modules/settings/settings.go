// Package settings persists small user preferences (last loaded network,
// preferred domain) between runs. Not to be confused with the viper-backed
// command configuration, which covers flags only.
package settings

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var qjson = jsoniter.ConfigCompatibleWithStandardLibrary

type prefs struct {
	data map[string]any
}

var loaded prefs

var prefmutex sync.Mutex

var prefpath = "preferences.json"

// SetPath points the store at a location (normally inside the datapath)
// and reloads from it.
func SetPath(dir string) error {
	prefmutex.Lock()
	prefpath = filepath.Join(dir, "preferences.json")
	prefmutex.Unlock()
	return Load()
}

func init() {
	Load()
}

func Load() error {
	prefmutex.Lock()
	defer prefmutex.Unlock()
	loaded.data = make(map[string]any)

	rawprefs, err := os.ReadFile(prefpath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	err = qjson.Unmarshal(rawprefs, &loaded.data)
	return err
}

func Save() error {
	prefmutex.Lock()
	defer prefmutex.Unlock()
	rawprefs, err := qjson.Marshal(loaded.data)
	if err != nil {
		return err
	}
	err = os.WriteFile(prefpath, rawprefs, 0600)
	return err
}

func Set(key string, val any) {
	prefmutex.Lock()
	defer prefmutex.Unlock()
	loaded.data[key] = val
}

func Get(key string) any {
	prefmutex.Lock()
	defer prefmutex.Unlock()
	return loaded.data[key]
}

func GetString(key string) string {
	if s, ok := Get(key).(string); ok {
		return s
	}
	return ""
}

func All() map[string]any {
	return loaded.data
}
