package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mrssilver/feedboat/internal/feedmodel"
)

// TestOpenAppliesMaxItemsDirectiveToStore is a non-white-box proof that a
// config-file "max-items" directive actually reaches the Store that Open
// produces, rather than being resolved too late to matter (runtime.Open
// must load directives before opening the store).
func TestOpenAppliesMaxItemsDirectiveToStore(t *testing.T) {
	dir := t.TempDir()
	cacheFile := filepath.Join(dir, "cache.db")
	configFile := filepath.Join(dir, "config")
	urlFile := filepath.Join(dir, "urls")

	if err := os.WriteFile(configFile, []byte("max-items 2\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(urlFile, []byte(""), 0644); err != nil {
		t.Fatalf("write urls: %v", err)
	}

	rt, err := Open([]string{
		"--cache-file", cacheFile,
		"--config-file", configFile,
		"--url-file", urlFile,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	if rt.Config.MaxItems != 2 {
		t.Fatalf("expected directive to resolve MaxItems=2 on the config, got %d", rt.Config.MaxItems)
	}

	f := feedmodel.NewFeed("https://ex/many")
	for i := 0; i < 5; i++ {
		f.AddItem(&feedmodel.Item{GUID: string(rune('a' + i)), PubDate: int64(i)})
	}
	if err := rt.Store.ExternalMerge(f); err != nil {
		t.Fatalf("merge: %v", err)
	}

	feeds, err := rt.Store.LoadFeeds([]string{"https://ex/many"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(feeds) != 1 || len(feeds[0].Items()) != 2 {
		t.Fatalf("expected the store opened by runtime.Open to honor max-items=2 from the config file, got %+v", feeds)
	}
}
